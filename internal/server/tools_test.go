package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"geo_locate_image",
		"geo_locate_group",
		"geo_aggregate",
		"geo_text_locate",
		"geo_plate_parse",
		"geo_validate",
		"geo_enhance_query",
		"geo_index_query",
		"geo_index_add",
		"image_info",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema missing properties")
			}

			required, _ := tool.InputSchema["required"].([]string)
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("required field %s is not a property", name)
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredFields(t *testing.T) {
	want := map[string][]string{
		"geo_locate_image":  {"path"},
		"geo_locate_group":  {"members"},
		"geo_text_locate":   {"text"},
		"geo_plate_parse":   {"text"},
		"geo_validate":      {"lat", "lon"},
		"geo_enhance_query": {"query"},
		"geo_index_query":   {"path"},
		"geo_index_add":     {"path"},
		"image_info":        {"path"},
	}

	for _, tool := range GetToolDefinitions() {
		fields, ok := want[tool.Name]
		if !ok {
			continue
		}
		required, _ := tool.InputSchema["required"].([]string)
		for _, f := range fields {
			found := false
			for _, r := range required {
				if r == f {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("%s: %s should be required", tool.Name, f)
			}
		}
	}
}

func TestCandidateSchema_Sources(t *testing.T) {
	props := candidateSchema()["properties"].(map[string]interface{})
	sources := props["source"].(map[string]interface{})["enum"].([]string)

	for _, src := range sources {
		arg := candidateArg{Source: src, Lat: 55.75, Lon: 37.62, Confidence: 0.5, Detail: "x"}
		c, err := arg.toCandidate()
		if err != nil {
			t.Errorf("source %s: %v", src, err)
			continue
		}
		if c.Source().String() != src {
			t.Errorf("source %s: candidate reports %s", src, c.Source())
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatalf("tools has type %T", result["tools"])
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools, want %d", len(tools), len(GetToolDefinitions()))
	}
}
