package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// candidateSchema describes one externally supplied evidence candidate.
func candidateSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"source": map[string]interface{}{
				"type": "string",
				"enum": []string{"exif", "archive_match", "external_geocode", "ocr_address",
					"ocr_phone_code", "ocr_postal_code", "license_plate", "object_context"},
				"description": "Which extractor produced the candidate",
			},
			"lat":        map[string]interface{}{"type": "number"},
			"lon":        map[string]interface{}{"type": "number"},
			"confidence": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"detail": map[string]interface{}{
				"type":        "string",
				"description": "Free-text provenance, e.g. the matched text or object label",
			},
		},
		"required": []string{"source", "lat", "lon", "confidence"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Location
		{
			Name:        "geo_locate_image",
			Description: "Estimate where a photo was taken. Runs EXIF GPS, reference archive similarity, recognized text (addresses, phone area codes, postal codes) and registration plates, picks the most confident candidate and checks it against the operational region. Returns coordinates, confidence, validation status and every contributing candidate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"external_candidates": map[string]interface{}{
						"type":        "array",
						"items":       candidateSchema(),
						"description": "Additional candidates, e.g. from object detection",
					},
					"geocode_hints": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Place names to resolve with the external geocoder",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "geo_locate_group",
			Description: "Estimate the location of one physical object photographed several times. Every member photo or video is located on its own, then validated member estimates are blended into a confidence-weighted centroid.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":        map[string]interface{}{"type": "string", "description": "Object name"},
					"description": map[string]interface{}{"type": "string"},
					"members": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"path": map[string]interface{}{"type": "string"},
								"kind": map[string]interface{}{
									"type":        "string",
									"enum":        []string{"image", "video"},
									"description": "Inferred from the file extension when omitted",
								},
							},
							"required": []string{"path"},
						},
					},
				},
				"required": []string{"members"},
			},
		},
		{
			Name:        "geo_aggregate",
			Description: "Fuse caller-supplied evidence without touching any image. Mode 'single' picks the most confident candidate; mode 'multi' computes the confidence-weighted centroid of per-asset estimates. The result is region-validated.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type":    "string",
						"enum":    []string{"single", "multi"},
						"default": "single",
					},
					"candidates": map[string]interface{}{
						"type":        "array",
						"items":       candidateSchema(),
						"description": "Candidates for mode 'single', in extraction order",
					},
					"estimates": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"lat":        map[string]interface{}{"type": "number"},
								"lon":        map[string]interface{}{"type": "number"},
								"confidence": map[string]interface{}{"type": "number"},
								"label":      map[string]interface{}{"type": "string"},
							},
							"required": []string{"lat", "lon", "confidence"},
						},
						"description": "Per-asset estimates for mode 'multi'",
					},
					"center_fallback": map[string]interface{}{
						"type":        "boolean",
						"description": "Replace rejected coordinates with the region center",
						"default":     false,
					},
				},
			},
		},

		// Signals
		{
			Name:        "geo_text_locate",
			Description: "Find location hints in text: street addresses, telephone area codes and postal codes. Returns the extracted hints and the resulting candidates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{"type": "string", "description": "Recognized or typed text"},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "geo_plate_parse",
			Description: "Parse a vehicle registration plate (Latin or Cyrillic letters) and look up the region its code belongs to.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{"type": "string", "description": "Plate text, e.g. 'А123ВС77'"},
				},
				"required": []string{"text"},
			},
		},

		// Region
		{
			Name:        "geo_validate",
			Description: "Check whether a coordinate lies inside the operational region (edges inclusive).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lat":        map[string]interface{}{"type": "number"},
					"lon":        map[string]interface{}{"type": "number"},
					"confidence": map[string]interface{}{"type": "number", "default": 1.0},
					"center_fallback": map[string]interface{}{
						"type":    "boolean",
						"default": false,
					},
				},
				"required": []string{"lat", "lon"},
			},
		},
		{
			Name:        "geo_enhance_query",
			Description: "Append the regional qualifier to a geocoding query unless it already names the region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
				},
				"required": []string{"query"},
			},
		},

		// Reference archive
		{
			Name:        "geo_index_query",
			Description: "Find reference archive photos visually similar to an image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"k": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of matches (default 5)",
						"default":     5,
					},
					"min_similarity": map[string]interface{}{
						"type":        "number",
						"description": "Similarity threshold in [0,1] (default 0)",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "geo_index_add",
			Description: "Add a reference photo of a known building, landmark or street to the archive.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"category": map[string]interface{}{
						"type":    "string",
						"enum":    []string{"building", "landmark", "street"},
						"default": "building",
					},
					"lat":         map[string]interface{}{"type": "number"},
					"lon":         map[string]interface{}{"type": "number"},
					"description": map[string]interface{}{"type": "string"},
					"attributes": map[string]interface{}{
						"type":                 "object",
						"additionalProperties": map[string]interface{}{"type": "string"},
					},
				},
				"required": []string{"path"},
			},
		},

		// Image
		{
			Name:        "image_info",
			Description: "Get dimensions, format and EXIF metadata (GPS position, capture time, camera) of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
