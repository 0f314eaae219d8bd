package routeros

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"uplink-status-monitor/internal/channel"
)

const DefaultPort = 8728

// Session is an open management session to one device.
type Session interface {
	// DefaultRoutes returns the properties of every 0.0.0.0/0 route.
	DefaultRoutes(ctx context.Context) ([]map[string]string, error)
	Close()
}

// DialFunc opens a session to address ("host:port").
type DialFunc func(ctx context.Context, address, user, password string, timeout time.Duration) (Session, error)

type Config struct {
	User     string
	Password string
	Port     int
	// Timeout bounds dialing and each query.
	Timeout time.Duration
}

// ProbeError describes why a device could not be classified.
type ProbeError struct {
	Address string
	Stage   string // dial, query
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("routeros %s %s: %v", e.Stage, e.Address, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Prober reads the active uplink of MikroTik routers. It never fails: every
// problem is logged and reported as channel.Unknown.
type Prober struct {
	cfg        Config
	dial       DialFunc
	classifier channel.Classifier
	log        *zap.Logger
}

type Option func(*Prober)

// WithDialer replaces the RouterOS API dialer.
func WithDialer(d DialFunc) Option {
	return func(p *Prober) { p.dial = d }
}

func NewProber(cfg Config, classifier channel.Classifier, logger *zap.Logger, opts ...Option) *Prober {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Prober{
		cfg:        cfg,
		dial:       dialAPI,
		classifier: classifier,
		log:        logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Probe returns the channel the device at ip is currently routing through.
// A zero port uses the configured one.
func (p *Prober) Probe(ctx context.Context, ip string, port int) channel.State {
	if ip == "" {
		return channel.Unknown
	}
	if port <= 0 {
		port = p.cfg.Port
	}
	address := net.JoinHostPort(ip, strconv.Itoa(port))

	state, err := p.probe(ctx, address)
	if err != nil {
		p.log.Warn("probe failed", zap.String("address", address), zap.Error(err))
		return channel.Unknown
	}
	p.log.Debug("probed", zap.String("address", address), zap.String("channel", string(state)))
	return state
}

func (p *Prober) probe(ctx context.Context, address string) (channel.State, error) {
	if p.cfg.User == "" || p.cfg.Password == "" {
		return channel.Unknown, &ProbeError{Address: address, Stage: "dial", Err: fmt.Errorf("credentials are not configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	s, err := p.dial(ctx, address, p.cfg.User, p.cfg.Password, p.cfg.Timeout)
	if err != nil {
		return channel.Unknown, &ProbeError{Address: address, Stage: "dial", Err: err}
	}
	defer s.Close()

	routes, err := s.DefaultRoutes(ctx)
	if err != nil {
		return channel.Unknown, &ProbeError{Address: address, Stage: "query", Err: err}
	}
	if len(routes) == 0 {
		return channel.Unknown, &ProbeError{Address: address, Stage: "query", Err: fmt.Errorf("no default route")}
	}
	return p.classifyRoutes(routes), nil
}

// classifyRoutes checks active routes first; when none is flagged active every
// default route is considered. The first classified route wins.
func (p *Prober) classifyRoutes(routes []map[string]string) channel.State {
	var active []map[string]string
	for _, r := range routes {
		if r["disabled"] == "true" || r["active"] == "false" {
			continue
		}
		active = append(active, r)
	}
	if len(active) == 0 {
		active = routes
	}
	for _, r := range active {
		if s := p.classifier.Classify(r["gateway-status"]); s != channel.Unknown {
			return s
		}
	}
	return channel.Unknown
}
