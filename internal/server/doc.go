// Package server implements the MCP (Model Context Protocol) server for the
// geolocation tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the location
// pipeline through the MCP protocol, so an analyst's assistant can ask where
// a photo was taken and see which evidence the answer rests on.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Location:
//   - geo_locate_image: Run every signal over one image and fuse the result
//   - geo_locate_group: Locate each photo or video of one object and blend them
//   - geo_aggregate: Fuse caller-supplied candidates or estimates
//
// Signals:
//   - geo_text_locate: Addresses, phone area codes and postal codes in text
//   - geo_plate_parse: Registration plate parsing and region lookup
//
// Region:
//   - geo_validate: Check a coordinate against the operational region
//   - geo_enhance_query: Add the regional qualifier to a geocoding query
//
// Reference archive:
//   - geo_index_query: Visually similar reference photos
//   - geo_index_add: Add a reference photo
//
// Image:
//   - image_info: Dimensions, format and EXIF metadata
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A location that could not be confirmed is not an error: the result says
// validated=false and carries a rejection reason.
//
// # Usage
//
//	srv := server.New(p, server.WithCatalog(store))
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
