package routeros

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uplink-status-monitor/internal/channel"
)

type fakeSession struct {
	routes []map[string]string
	err    error
	block  bool
	closed bool
}

func (s *fakeSession) DefaultRoutes(ctx context.Context) ([]map[string]string, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.routes, s.err
}

func (s *fakeSession) Close() { s.closed = true }

type fakeDialer struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	errs     map[string]error
	dialed   []string
}

func (d *fakeDialer) dial(_ context.Context, address, user, password string, _ time.Duration) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, address)
	if err := d.errs[address]; err != nil {
		return nil, err
	}
	if s, ok := d.sessions[address]; ok {
		return s, nil
	}
	return nil, errors.New("connection refused")
}

func newTestProber(d *fakeDialer) *Prober {
	return NewProber(
		Config{User: "monitor", Password: "pw", Timeout: 50 * time.Millisecond},
		channel.NewClassifier(nil, nil),
		nil,
		WithDialer(d.dial),
	)
}

func TestProbeClassifiesGatewayStatus(t *testing.T) {
	primary := &fakeSession{routes: []map[string]string{
		{"dst-address": "0.0.0.0/0", "gateway-status": "10.1.1.1 reachable via CCR11", "active": "true"},
	}}
	backup := &fakeSession{routes: []map[string]string{
		{"gateway-status": "10.1.1.1 unreachable", "active": "false"},
		{"gateway-status": "CCR21 reachable", "active": "true"},
	}}
	d := &fakeDialer{sessions: map[string]*fakeSession{
		"10.0.0.1:8728": primary,
		"10.0.0.2:8728": backup,
	}}
	p := newTestProber(d)

	assert.Equal(t, channel.Main, p.Probe(context.Background(), "10.0.0.1", 0))
	assert.Equal(t, channel.Backup, p.Probe(context.Background(), "10.0.0.2", 8728))
	assert.True(t, primary.closed)
	assert.True(t, backup.closed)
}

func TestProbeSkipsInactiveRoutes(t *testing.T) {
	s := &fakeSession{routes: []map[string]string{
		{"gateway-status": "reachable via CCR11", "active": "false"},
		{"gateway-status": "reachable via CCR12", "active": "true"},
	}}
	p := newTestProber(&fakeDialer{sessions: map[string]*fakeSession{"10.0.0.1:8728": s}})

	assert.Equal(t, channel.Backup, p.Probe(context.Background(), "10.0.0.1", 0))
}

func TestProbeConsidersAllRoutesWhenNoneActive(t *testing.T) {
	s := &fakeSession{routes: []map[string]string{
		{"gateway-status": "reachable via CCR22", "active": "false"},
	}}
	p := newTestProber(&fakeDialer{sessions: map[string]*fakeSession{"10.0.0.1:8728": s}})

	assert.Equal(t, channel.Main, p.Probe(context.Background(), "10.0.0.1", 0))
}

func TestProbeEmptyIPDoesNotDial(t *testing.T) {
	d := &fakeDialer{}
	p := newTestProber(d)

	assert.Equal(t, channel.Unknown, p.Probe(context.Background(), "", 0))
	assert.Empty(t, d.dialed)
}

func TestProbeFailuresDegradeToUnknown(t *testing.T) {
	d := &fakeDialer{
		errs: map[string]error{"10.0.0.1:8728": errors.New("invalid user name or password")},
		sessions: map[string]*fakeSession{
			"10.0.0.2:8728": {err: errors.New("!trap")},
			"10.0.0.3:8728": {},
			"10.0.0.4:8728": {block: true},
			"10.0.0.5:8728": {routes: []map[string]string{{"gateway-status": "10.0.0.1 reachable ether1"}}},
		},
	}
	p := newTestProber(d)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.9"} {
		assert.Equal(t, channel.Unknown, p.Probe(context.Background(), ip, 0), ip)
	}
}

func TestProbeWithoutCredentials(t *testing.T) {
	d := &fakeDialer{}
	p := NewProber(Config{}, channel.NewClassifier(nil, nil), nil, WithDialer(d.dial))

	assert.Equal(t, channel.Unknown, p.Probe(context.Background(), "10.0.0.1", 0))
	assert.Empty(t, d.dialed)
}

func TestProbeUsesCustomPort(t *testing.T) {
	d := &fakeDialer{}
	p := newTestProber(d)

	p.Probe(context.Background(), "10.0.0.1", 18728)
	require.Len(t, d.dialed, 1)
	assert.Equal(t, "10.0.0.1:18728", d.dialed[0])
}

func TestProbeErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := error(&ProbeError{Address: "10.0.0.1:8728", Stage: "dial", Err: cause})
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "dial 10.0.0.1:8728")
}
