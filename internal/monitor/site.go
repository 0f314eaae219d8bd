package monitor

import (
	"context"

	"go.uber.org/zap"

	"uplink-status-monitor/internal/channel"
	"uplink-status-monitor/internal/snapshot"
)

// checkSite builds the record of one site. It never fails: lookups that go
// wrong are logged and leave the affected fields absent or Unknown.
func (e *Engine) checkSite(ctx context.Context, dir Directory, s Site) snapshot.Record {
	if s.Reserve {
		return e.checkReserve(ctx, dir, s)
	}
	return e.checkPrimary(ctx, dir, s)
}

func (e *Engine) checkPrimary(ctx context.Context, dir Directory, s Site) snapshot.Record {
	name := s.Name()
	log := e.log.With(zap.String("site", name))

	values, _ := e.fetchValues(ctx, dir, s.Host.HostID, log)
	rec := snapshot.Record{
		Name:      name,
		Telemetry: e.cfg.Telemetry.telemetry(values),
	}

	route := e.policy.Route(name)
	log = log.With(zap.String("device", route.Device))

	if route.Redirected() {
		// The reserve link's own series is reported and its liveness decides
		// the channel; the router is not contacted.
		rec.Channel = channel.Unknown
		h, ok, err := dir.LookupHost(ctx, route.TelemetryHost)
		switch {
		case err != nil:
			log.Warn("override host lookup failed", zap.Error(err))
			return rec
		case !ok:
			log.Warn("override host not found")
			return rec
		}
		rec.IP = h.IP()
		// A failed fetch keeps the site's own telemetry.
		redirected, ok := e.fetchValues(ctx, dir, h.HostID, log)
		if !ok {
			return rec
		}
		rec.Telemetry = e.cfg.Telemetry.telemetry(redirected)
		rec.Channel = channel.FromLiveness(e.cfg.Telemetry.live(redirected))
		return rec
	}

	rec.IP = e.resolveIP(ctx, dir, route.Device, s.Host.IP(), log)
	rec.Channel = e.prober.Probe(ctx, rec.IP, e.cfg.ProbePort)
	return rec
}

func (e *Engine) checkReserve(ctx context.Context, dir Directory, s Site) snapshot.Record {
	name := s.Name()
	log := e.log.With(zap.String("site", name), zap.Bool("reserve", true))

	values, _ := e.fetchValues(ctx, dir, s.Host.HostID, log)
	return snapshot.Record{
		Name:      name,
		IP:        e.resolveIP(ctx, dir, s.Host.Host, s.Host.IP(), log),
		Reserve:   true,
		Channel:   channel.FromLiveness(e.cfg.Telemetry.live(values)),
		Telemetry: e.cfg.Telemetry.telemetry(values),
	}
}

// fetchValues returns the telemetry items of a host. ok is false when the
// fetch failed.
func (e *Engine) fetchValues(ctx context.Context, dir Directory, hostID string, log *zap.Logger) (map[string]string, bool) {
	values, err := dir.Metrics(ctx, hostID, e.cfg.Telemetry.list())
	if err != nil {
		log.Warn("telemetry fetch failed", zap.String("hostid", hostID), zap.Error(err))
		return nil, false
	}
	return values, true
}

// resolveIP looks up the address of device, using fallback when the device is
// unknown to the monitoring system or has no address.
func (e *Engine) resolveIP(ctx context.Context, dir Directory, device, fallback string, log *zap.Logger) string {
	h, ok, err := dir.LookupHost(ctx, device)
	if err != nil {
		log.Warn("device address lookup failed", zap.Error(err))
	}
	if ip := h.IP(); err == nil && ok && ip != "" {
		return ip
	}
	if fallback != "" {
		log.Debug("using site interface address", zap.String("ip", fallback))
	}
	return fallback
}
