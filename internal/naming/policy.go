package naming

import "strings"

// Override replaces the default device identity of one site.
type Override struct {
	Site   string
	Device string
	// RedirectTelemetry reports the override device's ICMP series instead of
	// the site's own and assigns the channel from liveness, without a probe.
	RedirectTelemetry bool
}

// Route says how a site is resolved and probed in one cycle.
type Route struct {
	Site   string
	Device string
	// Probe is false for telemetry-redirected sites.
	Probe bool
	// TelemetryHost is the monitoring host name whose telemetry is reported.
	// Empty means the site's own host.
	TelemetryHost string
}

func (r Route) Redirected() bool { return r.TelemetryHost != "" }

// Policy maps logical site names onto device names.
type Policy struct {
	suffix    string
	overrides map[string]Override
}

func NewPolicy(suffix string, overrides []Override) *Policy {
	p := &Policy{
		suffix:    suffix,
		overrides: make(map[string]Override, len(overrides)),
	}
	for _, o := range overrides {
		site := strings.TrimSpace(o.Site)
		if site == "" {
			continue
		}
		o.Site = site
		o.Device = strings.TrimSpace(o.Device)
		p.overrides[site] = o
	}
	return p
}

// DeviceNameFor returns the device name used to resolve the router of a site.
func (p *Policy) DeviceNameFor(site string) string {
	if o, ok := p.overrides[site]; ok && o.Device != "" {
		return o.Device
	}
	return site + p.suffix
}

// Redirected reports whether the site's telemetry comes from its override device.
func (p *Policy) Redirected(site string) bool {
	o, ok := p.overrides[site]
	return ok && o.RedirectTelemetry && o.Device != ""
}

func (p *Policy) Route(site string) Route {
	r := Route{
		Site:   site,
		Device: p.DeviceNameFor(site),
		Probe:  true,
	}
	if p.Redirected(site) {
		r.Probe = false
		r.TelemetryHost = r.Device
	}
	return r
}
