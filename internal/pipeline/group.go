package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/fusion"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
)

// AssetKind tells images from videos.
type AssetKind string

const (
	KindImage AssetKind = "image"
	KindVideo AssetKind = "video"
)

// ErrInvalidKind is returned for an asset kind other than image or video.
var ErrInvalidKind = errors.New("invalid asset kind")

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".m4v": true, ".3gp": true, ".mpg": true, ".mpeg": true,
}

// KindOf guesses the asset kind from the file extension.
func KindOf(path string) AssetKind {
	if videoExtensions[strings.ToLower(filepath.Ext(path))] {
		return KindVideo
	}
	return KindImage
}

// ParseKind validates a kind name. An empty name is inferred from path.
func ParseKind(s, path string) (AssetKind, error) {
	switch AssetKind(s) {
	case "":
		return KindOf(path), nil
	case KindImage, KindVideo:
		return AssetKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Asset is one member of an object group.
type Asset struct {
	Path string    `json:"path"`
	Kind AssetKind `json:"kind"`
}

// ObjectGroup is a set of photos and videos of the same physical object.
type ObjectGroup struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Members     []Asset `json:"members"`
}

// NewGroup creates a group with a fresh UUID. Member kinds left empty are
// inferred from the file extension.
func NewGroup(name, description string, members []Asset) ObjectGroup {
	ms := make([]Asset, len(members))
	for i, m := range members {
		if m.Kind == "" {
			m.Kind = KindOf(m.Path)
		}
		ms[i] = m
	}
	return ObjectGroup{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Members:     ms,
	}
}

// GroupReport is the outcome for an object group.
type GroupReport struct {
	Group   ObjectGroup     `json:"group"`
	Result  evidence.Result `json:"result"`
	Members []AssetReport   `json:"members"`
}

// LocateGroup locates every member and blends the member estimates into one
// weighted centroid. Members that fail are reported with their error and do
// not contribute. Only a cancelled context aborts the group.
func (p *Pipeline) LocateGroup(ctx context.Context, group ObjectGroup) (*GroupReport, error) {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}

	reports := make([]AssetReport, len(group.Members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, m := range group.Members {
		g.Go(func() error {
			r, err := p.locateMember(gctx, m, group.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warnf("group %s: member %s failed: %v", group.ID, m.Path, err)
				reports[i] = failedReport(m.Path, m.Kind, err)
				return nil
			}
			reports[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	estimates := make([]fusion.AssetEstimate, 0, len(reports))
	for _, r := range reports {
		if r.Error != "" || !r.Result.Validated {
			continue
		}
		estimates = append(estimates, fusion.AssetEstimate{
			Coordinates: r.Result.Coordinates,
			Confidence:  r.Result.Confidence,
			Label:       r.Path,
		})
	}

	result := p.finish(ctx, p.multi.Aggregate(estimates))
	p.save(ctx, "", group.ID, result)

	return &GroupReport{Group: group, Result: result, Members: reports}, nil
}

func (p *Pipeline) locateMember(ctx context.Context, m Asset, groupID string) (*AssetReport, error) {
	kind := m.Kind
	if kind == "" {
		kind = KindOf(m.Path)
	}
	switch kind {
	case KindImage:
		return p.LocateImage(ctx, ImageRequest{Path: m.Path, GroupID: groupID})
	case KindVideo:
		return p.LocateVideo(ctx, m.Path, groupID)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
}
