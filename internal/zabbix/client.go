package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// Config describes how to reach and log in to the Zabbix API.
type Config struct {
	URL      string
	User     string
	Password string
	// Token is a static API token. When set, Authenticate skips user.login.
	Token string
	// LoginParam is the user.login parameter carrying the user name:
	// "username" on Zabbix 5.4+, "user" before that.
	LoginParam string
	// AuthHeader sends the session as "Authorization: Bearer" instead of the
	// "auth" request member.
	AuthHeader bool
	Timeout    time.Duration
}

// Client issues JSON-RPC calls against the Zabbix frontend.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
	seq  atomic.Int64
}

func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(HTTPClientConfig{Timeout: cfg.Timeout})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LoginParam == "" {
		cfg.LoginParam = "username"
	}
	return &Client{cfg: cfg, http: httpClient, log: logger}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	Auth    string `json:"auth,omitempty"`
	ID      int64  `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

// Authenticate returns a fresh session. A new session is expected per cycle.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	if c.cfg.Token != "" {
		return &Session{client: c, token: c.cfg.Token}, nil
	}
	if c.cfg.User == "" || c.cfg.Password == "" {
		return nil, errors.Wrap(ErrAuth, "credentials are not configured")
	}

	params := map[string]string{
		c.cfg.LoginParam: c.cfg.User,
		"password":       c.cfg.Password,
	}
	var token string
	if err := c.call(ctx, "user.login", params, "", &token); err != nil {
		return nil, errors.Wrapf(ErrAuth, "login as %q: %v", c.cfg.User, err)
	}
	if token == "" {
		return nil, errors.Wrap(ErrAuth, "login returned an empty session")
	}
	c.log.Debug("logged in", zap.String("user", c.cfg.User))
	return &Session{client: c, token: token}, nil
}

// call performs one JSON-RPC request and decodes result into out.
func (c *Client) call(ctx context.Context, method string, params any, auth string, out any) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.seq.Add(1),
	}
	if !c.cfg.AuthHeader {
		req.Auth = auth
	}

	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "encode %s", method)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "build %s request", method)
	}
	httpReq.Header.Set("Content-Type", "application/json-rpc")
	if c.cfg.AuthHeader && auth != "" {
		httpReq.Header.Set("Authorization", "Bearer "+auth)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "%s", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrapf(err, "read %s response", method)
	}
	c.log.Debug("rpc",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Duration("took", time.Since(start)),
	)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s: unexpected HTTP status %d", method, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return errors.Wrapf(err, "decode %s response", method)
	}
	if r.Error != nil {
		r.Error.Method = method
		return r.Error
	}
	if len(r.Result) == 0 || strings.TrimSpace(string(r.Result)) == "null" {
		return errors.Wrapf(ErrEmptyResult, "%s", method)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return errors.Wrapf(err, "decode %s result", method)
	}
	return nil
}
