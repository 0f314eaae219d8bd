package monitor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"uplink-status-monitor/internal/snapshot"
)

// checkFunc produces the record of one site. It must not fail.
type checkFunc func(ctx context.Context, s Site) snapshot.Record

// runSites checks every site on a bounded pool of workers. Records keep the
// order of sites. Each site gets its own deadline so a stuck router cannot
// hold up the cycle beyond timeout.
func runSites(ctx context.Context, sites []Site, workers int, timeout time.Duration, check checkFunc) ([]snapshot.Record, error) {
	if workers <= 0 {
		workers = 1
	}

	records := make([]snapshot.Record, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range sites {
		g.Go(func() error {
			siteCtx := gctx
			if timeout > 0 {
				var cancel context.CancelFunc
				siteCtx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}
			records[i] = check(siteCtx, s)
			return nil
		})
	}
	_ = g.Wait()

	// A cycle cut short by its caller is not a complete cycle.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
