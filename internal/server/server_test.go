package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ironsheep/geolocate-mcp/internal/imaging"
	"github.com/ironsheep/geolocate-mcp/internal/index"
	"github.com/ironsheep/geolocate-mcp/internal/pipeline"
	"github.com/ironsheep/geolocate-mcp/internal/region"
)

// newTestServer builds a server over a pipeline with the default region and
// an empty reference index. No OCR engine or geocoder is attached.
func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	v, err := region.New(region.DefaultConfig())
	if err != nil {
		t.Fatalf("region.New: %v", err)
	}
	p, err := pipeline.New(pipeline.Deps{
		Validator: v,
		Index:     index.New(imaging.DescriptorDim),
	}, pipeline.Options{})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return New(p, opts...)
}

func TestNew(t *testing.T) {
	s := newTestServer(t)
	if s.cache == nil {
		t.Fatal("New() did not initialize cache")
	}
	if s.version != "dev" {
		t.Errorf("version: got %q, want dev", s.version)
	}

	s = newTestServer(t, WithVersion("1.2.3"))
	if s.version != "1.2.3" {
		t.Errorf("version: got %q, want 1.2.3", s.version)
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestMCPResponse_WithError(t *testing.T) {
	resp := MCPResponse{
		JSONRPC: "2.0",
		ID:      1,
		Error: &MCPError{
			Code:    -32601,
			Message: "Method not found",
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), `"result"`) {
		t.Errorf("error response should omit result: %s", data)
	}

	var decoded MCPResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != -32601 {
		t.Errorf("Error: got %+v, want code -32601", decoded.Error)
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t, WithVersion("0.9.0"))
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result := resp.Result.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != "geolocate-mcp" {
		t.Errorf("serverInfo.name: got %v", info["name"])
	}
	if info["version"] != "0.9.0" {
		t.Errorf("serverInfo.version: got %v", info["version"])
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: "p", Method: "ping"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ID != "p" {
		t.Errorf("ID: got %v, want p", resp.ID)
	}
}

func TestHandleRequest_NotificationsInitialized(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	if resp != nil {
		t.Errorf("notification should not get a response, got %+v", resp)
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 3, Method: "resources/list"})

	if resp.Error == nil {
		t.Fatal("expected error")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Code: got %d, want -32601", resp.Error.Code)
	}
}

func TestRun(t *testing.T) {
	s := newTestServer(t)

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"geo_enhance_query","arguments":{"query":"Тверская 7"}}}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Run(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dec := json.NewDecoder(&out)
	var responses []MCPResponse
	for dec.More() {
		var r MCPResponse
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode: %v", err)
		}
		responses = append(responses, r)
	}

	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[0].Error != nil {
		t.Errorf("initialize failed: %+v", responses[0].Error)
	}
	if responses[1].Error == nil || responses[1].Error.Code != -32700 {
		t.Errorf("expected parse error, got %+v", responses[1])
	}
	if responses[2].Error != nil {
		t.Errorf("tools/call failed: %+v", responses[2].Error)
	}
	if !strings.Contains(mustMarshalJSON(responses[2].Result), "Тверская 7, Москва") {
		t.Errorf("enhanced query missing from %v", responses[2].Result)
	}
}

func TestRun_Cancelled(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Run(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if err == nil {
		t.Fatal("expected context error")
	}
	if out.Len() != 0 {
		t.Errorf("no response expected after cancellation, got %s", out.String())
	}
}
