package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/exif"
	"github.com/ironsheep/geolocate-mcp/internal/fusion"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/imaging"
	"github.com/ironsheep/geolocate-mcp/internal/index"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
	"github.com/ironsheep/geolocate-mcp/internal/pipeline"
	"github.com/ironsheep/geolocate-mcp/internal/plate"
	"github.com/ironsheep/geolocate-mcp/internal/textloc"
)

// ErrNoIndex is returned by the archive tools when no index is loaded.
var ErrNoIndex = errors.New("no reference index loaded")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "geo_locate_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		logger.Warnf("tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Location
	case "geo_locate_image":
		return s.handleLocateImage(ctx, args)
	case "geo_locate_group":
		return s.handleLocateGroup(ctx, args)
	case "geo_aggregate":
		return s.handleAggregate(args)

	// Signals
	case "geo_text_locate":
		return s.handleTextLocate(ctx, args)
	case "geo_plate_parse":
		return s.handlePlateParse(args)

	// Region
	case "geo_validate":
		return s.handleValidate(args)
	case "geo_enhance_query":
		return s.handleEnhanceQuery(args)

	// Reference archive
	case "geo_index_query":
		return s.handleIndexQuery(args)
	case "geo_index_add":
		return s.handleIndexAdd(ctx, args)

	// Image
	case "image_info":
		return s.handleImageInfo(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// candidateArg is the wire form of an evidence candidate.
type candidateArg struct {
	Source     string  `json:"source"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Confidence float64 `json:"confidence"`
	Detail     string  `json:"detail"`
}

// toCandidate builds the provenance variant matching the source, with the
// free-text detail in its primary field.
func (a candidateArg) toCandidate() (evidence.Candidate, error) {
	src, err := evidence.ParseSource(a.Source)
	if err != nil {
		return evidence.Candidate{}, err
	}
	c := geo.Coordinates{Lat: a.Lat, Lon: a.Lon}
	if !c.Valid() {
		return evidence.Candidate{}, fmt.Errorf("invalid coordinates %s", c)
	}

	var p evidence.Provenance
	switch src {
	case evidence.SourceExif:
		p = evidence.ExifProvenance{Path: a.Detail}
	case evidence.SourceArchiveMatch:
		p = evidence.ArchiveProvenance{RecordID: a.Detail, Similarity: a.Confidence}
	case evidence.SourceExternalGeocode:
		p = evidence.GeocodeProvenance{Provider: "external", Query: a.Detail}
	case evidence.SourceOCRAddress:
		p = evidence.AddressProvenance{MatchedText: a.Detail, Query: a.Detail}
	case evidence.SourceOCRPhoneCode:
		p = evidence.PhoneCodeProvenance{MatchedText: a.Detail}
	case evidence.SourceOCRPostalCode:
		p = evidence.PostalCodeProvenance{PostalCode: a.Detail}
	case evidence.SourceLicensePlate:
		p = evidence.PlateProvenance{RawText: a.Detail, Normalized: plate.Normalize(a.Detail)}
	default:
		p = evidence.ObjectContextProvenance{Label: a.Detail}
	}
	return evidence.New(c, a.Confidence, p), nil
}

func toCandidates(args []candidateArg) ([]evidence.Candidate, error) {
	out := make([]evidence.Candidate, 0, len(args))
	for i, a := range args {
		c, err := a.toCandidate()
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// === Location Handlers ===

type locateImageArgs struct {
	Path               string         `json:"path"`
	ExternalCandidates []candidateArg `json:"external_candidates"`
	GeocodeHints       []string       `json:"geocode_hints"`
}

func (s *Server) handleLocateImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a locateImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	external, err := toCandidates(a.ExternalCandidates)
	if err != nil {
		return nil, err
	}

	return s.pipeline.LocateImage(ctx, pipeline.ImageRequest{
		Path:         a.Path,
		External:     external,
		GeocodeHints: a.GeocodeHints,
	})
}

type locateGroupArgs struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     []struct {
		Path string `json:"path"`
		Kind string `json:"kind"`
	} `json:"members"`
}

func (s *Server) handleLocateGroup(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a locateGroupArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Members) == 0 {
		return nil, fmt.Errorf("at least one member is required")
	}

	members := make([]pipeline.Asset, len(a.Members))
	for i, m := range a.Members {
		kind, err := pipeline.ParseKind(m.Kind, m.Path)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		members[i] = pipeline.Asset{Path: m.Path, Kind: kind}
	}

	return s.pipeline.LocateGroup(ctx, pipeline.NewGroup(a.Name, a.Description, members))
}

type aggregateArgs struct {
	Mode       string         `json:"mode"`
	Candidates []candidateArg `json:"candidates"`
	Estimates  []struct {
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		Confidence float64 `json:"confidence"`
		Label      string  `json:"label"`
	} `json:"estimates"`
	CenterFallback bool `json:"center_fallback"`
}

func (s *Server) handleAggregate(args json.RawMessage) (interface{}, error) {
	var a aggregateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	v := s.pipeline.Validator()

	var result evidence.Result
	switch a.Mode {
	case "", "single":
		cands, err := toCandidates(a.Candidates)
		if err != nil {
			return nil, err
		}
		result = fusion.NewSingleAsset(v).Aggregate(cands)
	case "multi":
		estimates := make([]fusion.AssetEstimate, len(a.Estimates))
		for i, e := range a.Estimates {
			estimates[i] = fusion.AssetEstimate{
				Coordinates: &geo.Coordinates{Lat: e.Lat, Lon: e.Lon},
				Confidence:  e.Confidence,
				Label:       e.Label,
			}
		}
		result = fusion.NewMultiAsset(v).Aggregate(estimates)
	default:
		return nil, fmt.Errorf("unknown mode %q (want single or multi)", a.Mode)
	}

	if a.CenterFallback {
		result = v.WithCenterFallback(result)
	}
	return result, nil
}

// === Signal Handlers ===

type textArgs struct {
	Text string `json:"text"`
}

type textLocateResult struct {
	Hints      textloc.Hints        `json:"hints"`
	Candidates []evidence.Candidate `json:"candidates"`
}

func (s *Server) handleTextLocate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cands := s.pipeline.TextLocator().Locate(ctx, a.Text)
	if cands == nil {
		cands = []evidence.Candidate{}
	}
	return &textLocateResult{
		Hints:      textloc.Extract(a.Text),
		Candidates: cands,
	}, nil
}

type plateParseResult struct {
	Input  string        `json:"input"`
	Valid  bool          `json:"valid"`
	Plate  *plate.Plate  `json:"plate,omitempty"`
	Region *plate.Region `json:"region,omitempty"`
}

func (s *Server) handlePlateParse(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	res := &plateParseResult{Input: a.Text}
	p, ok := plate.Parse(a.Text)
	if !ok {
		return res, nil
	}
	res.Valid = true
	res.Plate = &p
	if reg, ok := p.Region(); ok {
		res.Region = &reg
	}
	return res, nil
}

// === Region Handlers ===

type validateArgs struct {
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	Confidence     *float64 `json:"confidence"`
	CenterFallback bool     `json:"center_fallback"`
}

func (s *Server) handleValidate(args json.RawMessage) (interface{}, error) {
	var a validateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	c := geo.Coordinates{Lat: a.Lat, Lon: a.Lon}
	if !c.Valid() {
		return nil, fmt.Errorf("invalid coordinates %s", c)
	}
	confidence := 1.0
	if a.Confidence != nil {
		confidence = evidence.ClampConfidence(*a.Confidence)
	}

	v := s.pipeline.Validator()
	result := v.Validate(evidence.Result{
		Coordinates:   &c,
		Confidence:    confidence,
		Contributions: []evidence.Contribution{},
	})
	if a.CenterFallback {
		result = v.WithCenterFallback(result)
	}
	return map[string]interface{}{
		"inside": v.Contains(c),
		"bounds": v.Bounds(),
		"result": result,
	}, nil
}

func (s *Server) handleEnhanceQuery(args json.RawMessage) (interface{}, error) {
	var a struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"query":    a.Query,
		"enhanced": s.pipeline.Validator().EnhanceQuery(a.Query),
	}, nil
}

// === Reference Archive Handlers ===

type indexQueryArgs struct {
	Path          string  `json:"path"`
	K             int     `json:"k"`
	MinSimilarity float64 `json:"min_similarity"`
}

func (s *Server) handleIndexQuery(args json.RawMessage) (interface{}, error) {
	a := indexQueryArgs{K: 5}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ix := s.pipeline.Index()
	if ix == nil {
		return nil, ErrNoIndex
	}

	desc, err := s.pipeline.Extractor().ExtractFile(a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"index_size": ix.Len(),
		"matches":    ix.Query(desc, a.K, a.MinSimilarity),
	}, nil
}

type indexAddArgs struct {
	Path        string            `json:"path"`
	Category    string            `json:"category"`
	Lat         *float64          `json:"lat"`
	Lon         *float64          `json:"lon"`
	Description string            `json:"description"`
	Attributes  map[string]string `json:"attributes"`
}

func (s *Server) handleIndexAdd(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a indexAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ix := s.pipeline.Index()
	if ix == nil {
		return nil, ErrNoIndex
	}
	category, err := index.ParseCategory(a.Category)
	if err != nil {
		return nil, err
	}

	var coords *geo.Coordinates
	if a.Lat != nil || a.Lon != nil {
		if a.Lat == nil || a.Lon == nil {
			return nil, fmt.Errorf("lat and lon must be given together")
		}
		c := geo.Coordinates{Lat: *a.Lat, Lon: *a.Lon}
		if !c.Valid() {
			return nil, fmt.Errorf("invalid coordinates %s", c)
		}
		coords = &c
	}

	desc, err := s.pipeline.Extractor().ExtractFile(a.Path)
	if err != nil {
		return nil, err
	}
	rec, err := ix.Insert(desc, index.Metadata{
		Category:    category,
		Coordinates: coords,
		Description: a.Description,
		Attributes:  a.Attributes,
	})
	if err != nil {
		return nil, err
	}
	if s.catalog != nil {
		if err := s.catalog.SaveRecord(ctx, rec); err != nil {
			if rmErr := ix.Remove(rec.ID); rmErr != nil {
				logger.Warnf("failed to roll back record %s: %v", rec.ID, rmErr)
			}
			return nil, fmt.Errorf("failed to persist record: %w", err)
		}
	}
	return map[string]interface{}{
		"record":     rec,
		"index_size": ix.Len(),
		"persisted":  s.catalog != nil,
	}, nil
}

// === Image Handlers ===

type imageInfoResult struct {
	*imaging.ImageInfo
	Path string         `json:"path"`
	EXIF *exif.Metadata `json:"exif,omitempty"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := imaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	defer s.cache.Evict(a.Path)

	md, err := exif.ReadFile(a.Path)
	if err != nil {
		return nil, err
	}
	return &imageInfoResult{ImageInfo: info, Path: a.Path, EXIF: md}, nil
}
