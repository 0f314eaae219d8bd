package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"uplink-status-monitor/internal/naming"
	"uplink-status-monitor/internal/snapshot"
	"uplink-status-monitor/internal/zabbix"
)

// Engine runs refresh cycles: it discovers sites, checks each of them and
// publishes the result as one snapshot.
type Engine struct {
	cfg    Config
	auth   Authenticator
	prober Prober
	policy *naming.Policy
	store  *snapshot.Store
	log    *zap.Logger

	now func() time.Time
	// mu serialises cycles.
	mu sync.Mutex
}

func NewEngine(cfg Config, auth Authenticator, prober Prober, policy *naming.Policy, store *snapshot.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = naming.NewPolicy("", nil)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Engine{
		cfg:    cfg,
		auth:   auth,
		prober: prober,
		policy: policy,
		store:  store,
		log:    logger.Named("engine"),
		now:    time.Now,
	}
}

// Store returns the snapshot store the engine publishes into.
func (e *Engine) Store() *snapshot.Store { return e.store }

// Collect runs discovery and site checks without publishing anything.
// Primary sites come first, then reserve sites, each in discovery order.
func (e *Engine) Collect(ctx context.Context) ([]snapshot.Record, error) {
	dir, err := e.auth.Authenticate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}

	primary, err := ResolveGroups(ctx, dir, e.cfg.Primary.Groups, e.cfg.Primary.NameFilter)
	if err != nil {
		return nil, errors.Wrap(err, "resolve primary groups")
	}
	reserve, err := ResolveGroups(ctx, dir, e.cfg.Reserve.Groups, e.cfg.Reserve.NameFilter)
	if err != nil {
		return nil, errors.Wrap(err, "resolve reserve groups")
	}

	sites := make([]Site, 0, len(primary)+len(reserve))
	for _, h := range primary {
		sites = append(sites, Site{Host: h})
	}
	for _, h := range reserve {
		sites = append(sites, Site{Host: h, Reserve: true})
	}

	e.log.Debug("sites discovered",
		zap.Int("primary", len(primary)),
		zap.Int("reserve", len(reserve)),
	)

	records, err := runSites(ctx, sites, e.cfg.Concurrency, e.cfg.SiteTimeout,
		func(ctx context.Context, s Site) snapshot.Record {
			return e.checkSite(ctx, dir, s)
		})
	if err != nil {
		return nil, errors.Wrap(err, "check sites")
	}
	return records, nil
}

// RunCycle collects and publishes one snapshot. A failed cycle publishes
// nothing and leaves the previous snapshot in place.
func (e *Engine) RunCycle(ctx context.Context) (snapshot.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	records, err := e.Collect(ctx)
	if err != nil {
		e.store.Fail(e.now(), err)
		e.log.Error("refresh cycle failed", zap.Error(err))
		return snapshot.Snapshot{}, err
	}

	at := e.now()
	exposition, err := snapshot.RenderRecords(records, at)
	if err != nil {
		err = errors.Wrap(err, "render metrics")
		e.store.Fail(at, err)
		e.log.Error("refresh cycle failed", zap.Error(err))
		return snapshot.Snapshot{}, err
	}

	prev := e.store.Get().Records
	snap := snapshot.Snapshot{
		Cycle:       e.store.NextCycle(),
		GeneratedAt: at,
		Records:     records,
		Exposition:  exposition,
	}
	e.store.Publish(snap)
	e.logTransitions(transitions(prev, records, at))

	e.log.Info("refresh cycle published",
		zap.Uint64("cycle", snap.Cycle),
		zap.Int("sites", len(records)),
		zap.Duration("took", at.Sub(start)),
	)
	return e.store.Get(), nil
}

// Groups lists every host group visible to the configured account.
func (e *Engine) Groups(ctx context.Context) ([]zabbix.Group, error) {
	dir, err := e.auth.Authenticate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}
	groups, err := dir.Groups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list host groups")
	}
	return groups, nil
}
