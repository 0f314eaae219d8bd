package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Zabbix    ZabbixConfig    `yaml:"zabbix"`
	RouterOS  RouterOSConfig  `yaml:"routeros"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Primary   GroupQuery      `yaml:"primary"`
	Reserve   GroupQuery      `yaml:"reserve"`
	Naming    NamingConfig    `yaml:"naming"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Channel   ChannelConfig   `yaml:"channel"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
}

type ZabbixConfig struct {
	URL                string `yaml:"url"`
	Timeout            string `yaml:"timeout"` // e.g. "5s"
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
	UserAgent          string `yaml:"user_agent"`
	LoginParam         string `yaml:"login_param"` // "username" (5.4+) or "user"
	AuthHeader         bool   `yaml:"auth_header,omitempty"`

	// From the environment only.
	User     string `yaml:"-"`
	Password string `yaml:"-"`
	Token    string `yaml:"-"`

	TimeoutDur time.Duration `yaml:"-"`
}

type RouterOSConfig struct {
	Port    int    `yaml:"port"`
	Timeout string `yaml:"timeout"`

	// From the environment only.
	User     string `yaml:"-"`
	Password string `yaml:"-"`

	TimeoutDur time.Duration `yaml:"-"`
}

type RefreshConfig struct {
	Interval    string  `yaml:"interval"` // e.g. "30s"
	Jitter      float64 `yaml:"jitter"`   // fraction of interval, 0.1 = ±10%
	Concurrency int     `yaml:"concurrency"`
	SiteTimeout string  `yaml:"site_timeout"`

	IntervalDur    time.Duration `yaml:"-"`
	SiteTimeoutDur time.Duration `yaml:"-"`
}

// GroupQuery selects the hosts that are members of every group.
type GroupQuery struct {
	Groups     []string `yaml:"groups"`
	NameFilter string   `yaml:"name_filter,omitempty"`
}

type NamingConfig struct {
	DeviceSuffix string     `yaml:"device_suffix"`
	Overrides    []Override `yaml:"overrides,omitempty"`
}

type Override struct {
	Site              string `yaml:"site"`
	Device            string `yaml:"device"`
	RedirectTelemetry bool   `yaml:"redirect_telemetry,omitempty"`
}

type TelemetryConfig struct {
	LossKey       string  `yaml:"loss_key"`
	ResponseKey   string  `yaml:"response_key"`
	ResponseScale float64 `yaml:"response_scale"` // item unit -> milliseconds
	LivenessKey   string  `yaml:"liveness_key"`
}

type ChannelConfig struct {
	MainTags   []string `yaml:"main_tags"`
	BackupTags []string `yaml:"backup_tags"`
}

// Load reads the YAML file at path, overlays credentials from the
// environment and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, os.Getenv)
}

// LoadEnvFile loads KEY=value pairs into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Parse builds a Config from YAML bytes and an environment lookup.
func Parse(b []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	applyEnv(&cfg, getenv)
	applyDefaults(&cfg)

	if err := validateAndNormalize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := strings.TrimSpace(getenv("ZABBIX_URL")); v != "" {
		cfg.Zabbix.URL = v
	}
	cfg.Zabbix.User = getenv("ZABBIX_USER")
	cfg.Zabbix.Password = getenv("ZABBIX_PASSWORD")
	cfg.Zabbix.Token = strings.TrimSpace(getenv("ZABBIX_TOKEN"))
	cfg.RouterOS.User = getenv("MIKROTIK_USER")
	cfg.RouterOS.Password = getenv("MIKROTIK_PASSWORD")
}

func applyDefaults(cfg *Config) {
	// Server defaults
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Encoding) == "" {
		cfg.Log.Encoding = "console"
	}

	// Zabbix defaults
	if strings.TrimSpace(cfg.Zabbix.Timeout) == "" {
		cfg.Zabbix.Timeout = "5s"
	}
	if strings.TrimSpace(cfg.Zabbix.UserAgent) == "" {
		cfg.Zabbix.UserAgent = "UplinkStatusMonitor/0.1"
	}
	if strings.TrimSpace(cfg.Zabbix.LoginParam) == "" {
		cfg.Zabbix.LoginParam = "username"
	}

	// RouterOS defaults
	if cfg.RouterOS.Port == 0 {
		cfg.RouterOS.Port = 8728
	}
	if strings.TrimSpace(cfg.RouterOS.Timeout) == "" {
		cfg.RouterOS.Timeout = "5s"
	}

	// Refresh defaults
	if strings.TrimSpace(cfg.Refresh.Interval) == "" {
		cfg.Refresh.Interval = "30s"
	}
	if cfg.Refresh.Concurrency <= 0 {
		cfg.Refresh.Concurrency = 8
	}
	if strings.TrimSpace(cfg.Refresh.SiteTimeout) == "" {
		cfg.Refresh.SiteTimeout = "20s"
	}

	// Telemetry defaults
	if strings.TrimSpace(cfg.Telemetry.LossKey) == "" {
		cfg.Telemetry.LossKey = "icmppingloss"
	}
	if strings.TrimSpace(cfg.Telemetry.ResponseKey) == "" {
		cfg.Telemetry.ResponseKey = "icmppingsec"
	}
	if cfg.Telemetry.ResponseScale == 0 {
		cfg.Telemetry.ResponseScale = 1000 // icmppingsec reports seconds
	}
	if strings.TrimSpace(cfg.Telemetry.LivenessKey) == "" {
		cfg.Telemetry.LivenessKey = "icmpping"
	}
}

func validateAndNormalize(cfg *Config) error {
	cfg.Zabbix.URL = strings.TrimSpace(cfg.Zabbix.URL)
	if cfg.Zabbix.URL == "" {
		return errors.New("config: zabbix url is required (zabbix.url or ZABBIX_URL)")
	}
	if !strings.HasPrefix(cfg.Zabbix.URL, "http://") && !strings.HasPrefix(cfg.Zabbix.URL, "https://") {
		return fmt.Errorf("config: zabbix url %q must start with http:// or https://", cfg.Zabbix.URL)
	}
	switch cfg.Zabbix.LoginParam {
	case "username", "user":
	default:
		return fmt.Errorf("config: zabbix login_param %q (use username or user)", cfg.Zabbix.LoginParam)
	}

	var err error
	if cfg.Zabbix.TimeoutDur, err = positiveDuration("zabbix.timeout", cfg.Zabbix.Timeout); err != nil {
		return err
	}
	if cfg.RouterOS.TimeoutDur, err = positiveDuration("routeros.timeout", cfg.RouterOS.Timeout); err != nil {
		return err
	}
	if cfg.Refresh.IntervalDur, err = positiveDuration("refresh.interval", cfg.Refresh.Interval); err != nil {
		return err
	}
	if cfg.Refresh.SiteTimeoutDur, err = positiveDuration("refresh.site_timeout", cfg.Refresh.SiteTimeout); err != nil {
		return err
	}

	if cfg.RouterOS.Port < 1 || cfg.RouterOS.Port > 65535 {
		return fmt.Errorf("config: routeros.port must be 1..65535")
	}
	if cfg.Refresh.Jitter < 0 || cfg.Refresh.Jitter >= 1 {
		return fmt.Errorf("config: refresh.jitter must be in [0, 1)")
	}
	if cfg.Telemetry.ResponseScale < 0 {
		return fmt.Errorf("config: telemetry.response_scale cannot be negative")
	}

	cfg.Primary.Groups = trimAll(cfg.Primary.Groups)
	cfg.Reserve.Groups = trimAll(cfg.Reserve.Groups)
	if len(cfg.Primary.Groups) == 0 && len(cfg.Reserve.Groups) == 0 {
		return errors.New("config: no site groups provided (primary.groups or reserve.groups)")
	}

	seen := make(map[string]struct{}, len(cfg.Naming.Overrides))
	for i := range cfg.Naming.Overrides {
		o := &cfg.Naming.Overrides[i]
		o.Site = strings.TrimSpace(o.Site)
		o.Device = strings.TrimSpace(o.Device)
		if o.Site == "" {
			return fmt.Errorf("config: naming.overrides[%d] missing site", i)
		}
		if o.Device == "" {
			return fmt.Errorf("config: naming override %q missing device", o.Site)
		}
		if _, ok := seen[o.Site]; ok {
			return fmt.Errorf("config: duplicate naming override %q", o.Site)
		}
		seen[o.Site] = struct{}{}
	}

	cfg.Channel.MainTags = trimAll(cfg.Channel.MainTags)
	cfg.Channel.BackupTags = trimAll(cfg.Channel.BackupTags)
	for _, m := range cfg.Channel.MainTags {
		for _, b := range cfg.Channel.BackupTags {
			if m == b {
				return fmt.Errorf("config: channel tag %q is both main and backup", m)
			}
		}
	}

	return nil
}

func positiveDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be > 0", field)
	}
	return d, nil
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
