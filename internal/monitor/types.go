package monitor

import (
	"context"
	"time"

	"uplink-status-monitor/internal/channel"
	"uplink-status-monitor/internal/zabbix"
)

// Directory is an authenticated session against the monitoring system.
type Directory interface {
	Groups(ctx context.Context) ([]zabbix.Group, error)
	GroupIDs(ctx context.Context, names []string) (map[string]string, error)
	Hosts(ctx context.Context, groupID, nameFilter string) ([]zabbix.Host, error)
	Metrics(ctx context.Context, hostID string, keys []string) (map[string]string, error)
	// LookupHost finds a host by technical or visible name.
	LookupHost(ctx context.Context, name string) (zabbix.Host, bool, error)
}

// Authenticator opens a Directory. It is called once per cycle.
type Authenticator interface {
	Authenticate(ctx context.Context) (Directory, error)
}

type AuthenticatorFunc func(ctx context.Context) (Directory, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context) (Directory, error) { return f(ctx) }

// ZabbixAuthenticator logs in to Zabbix through c.
func ZabbixAuthenticator(c *zabbix.Client) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context) (Directory, error) {
		s, err := c.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Prober reads the active channel of one router.
type Prober interface {
	Probe(ctx context.Context, ip string, port int) channel.State
}

// GroupQuery selects the hosts that are members of every group.
type GroupQuery struct {
	Groups     []string
	NameFilter string
}

// TelemetryKeys names the monitoring items merged into each record.
type TelemetryKeys struct {
	Loss     string
	Response string
	// ResponseScale converts the response item into milliseconds.
	ResponseScale float64
	Liveness      string
}

func (k TelemetryKeys) list() []string {
	keys := make([]string, 0, 3)
	for _, key := range []string{k.Loss, k.Response, k.Liveness} {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Config drives the aggregation engine.
type Config struct {
	Primary   GroupQuery
	Reserve   GroupQuery
	Telemetry TelemetryKeys
	ProbePort int

	// Concurrency bounds how many sites are checked at once.
	Concurrency int
	// SiteTimeout bounds the work for one site.
	SiteTimeout time.Duration
}

// Site is a host discovered in this cycle.
type Site struct {
	Host    zabbix.Host
	Reserve bool
}

func (s Site) Name() string { return s.Host.DisplayName() }
