package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/geolocate-mcp/internal/logger"
)

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Total     int `json:"total"`
	Validated int `json:"validated"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
}

// LocateBatch locates independent assets with at most Options.Workers running
// at once. Reports come back in input order; an asset that fails is reported
// with its error and the batch carries on. Only a cancelled context returns
// an error.
func (p *Pipeline) LocateBatch(ctx context.Context, paths []string) ([]AssetReport, BatchSummary, error) {
	reports := make([]AssetReport, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			r, err := p.locateMember(gctx, Asset{Path: path}, "")
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warnf("batch: %s failed: %v", path, err)
				reports[i] = failedReport(path, KindOf(path), err)
				return nil
			}
			reports[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, BatchSummary{}, err
	}

	sum := BatchSummary{Total: len(reports)}
	for _, r := range reports {
		switch {
		case r.Error != "":
			sum.Failed++
		case r.Result.Validated:
			sum.Validated++
		default:
			sum.Rejected++
		}
	}
	logger.Infof("batch: %d assets, %d validated, %d rejected, %d failed",
		sum.Total, sum.Validated, sum.Rejected, sum.Failed)
	return reports, sum, nil
}
