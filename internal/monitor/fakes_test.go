package monitor

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"uplink-status-monitor/internal/channel"
	"uplink-status-monitor/internal/zabbix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDirectory is an in-memory monitoring system. Maps are set up before a
// cycle starts and only read afterwards.
type fakeDirectory struct {
	mu      sync.Mutex
	lookups map[string]int

	groups  map[string]string        // group name -> id
	members map[string][]zabbix.Host // group id -> hosts
	metrics map[string]map[string]string
	hostIPs map[string]string // host name -> ip
	hostIDs map[string]string // host name -> id

	groupIDsErr map[string]error // fail GroupIDs when the name is requested
	hostsErr    map[string]error // fail Hosts for a group id
	metricsErr  map[string]error // fail Metrics for a host id
	groupsErr   error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		lookups:     map[string]int{},
		groups:      map[string]string{},
		members:     map[string][]zabbix.Host{},
		metrics:     map[string]map[string]string{},
		hostIPs:     map[string]string{},
		hostIDs:     map[string]string{},
		groupIDsErr: map[string]error{},
		hostsErr:    map[string]error{},
		metricsErr:  map[string]error{},
	}
}

func (d *fakeDirectory) addGroup(name, id string, hosts ...zabbix.Host) {
	d.groups[name] = id
	d.members[id] = append(d.members[id], hosts...)
}

func (d *fakeDirectory) Groups(context.Context) ([]zabbix.Group, error) {
	if d.groupsErr != nil {
		return nil, d.groupsErr
	}
	out := make([]zabbix.Group, 0, len(d.groups))
	for name, id := range d.groups {
		out = append(out, zabbix.Group{GroupID: id, Name: name})
	}
	return out, nil
}

func (d *fakeDirectory) GroupIDs(_ context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, n := range names {
		if err := d.groupIDsErr[n]; err != nil {
			return nil, err
		}
		if id, ok := d.groups[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (d *fakeDirectory) Hosts(_ context.Context, groupID, _ string) ([]zabbix.Host, error) {
	if err := d.hostsErr[groupID]; err != nil {
		return nil, err
	}
	return d.members[groupID], nil
}

func (d *fakeDirectory) Metrics(_ context.Context, hostID string, _ []string) (map[string]string, error) {
	if err := d.metricsErr[hostID]; err != nil {
		return nil, err
	}
	return d.metrics[hostID], nil
}

func (d *fakeDirectory) LookupHost(_ context.Context, name string) (zabbix.Host, bool, error) {
	d.mu.Lock()
	d.lookups[name]++
	d.mu.Unlock()

	ip, hasIP := d.hostIPs[name]
	id, hasID := d.hostIDs[name]
	if !hasIP && !hasID {
		return zabbix.Host{}, false, nil
	}
	return host(id, name, ip), true, nil
}

func (d *fakeDirectory) lookupCount(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups[name]
}

// fakeProber answers from a table keyed by IP and records its calls.
type fakeProber struct {
	mu     sync.Mutex
	states map[string]channel.State
	calls  []string
	// block makes Probe wait for its context for these IPs.
	block map[string]bool
}

func newFakeProber() *fakeProber {
	return &fakeProber{states: map[string]channel.State{}, block: map[string]bool{}}
}

func (p *fakeProber) Probe(ctx context.Context, ip string, _ int) channel.State {
	p.mu.Lock()
	p.calls = append(p.calls, ip)
	blocked := p.block[ip]
	state, ok := p.states[ip]
	p.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return channel.Unknown
	}
	if !ok {
		return channel.Unknown
	}
	return state
}

func (p *fakeProber) probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func host(id, name, ip string) zabbix.Host {
	h := zabbix.Host{HostID: id, Host: name, Name: name, Status: "0"}
	if ip != "" {
		h.Interfaces = []zabbix.Interface{{IP: ip, Main: "1"}}
	}
	return h
}
