package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"uplink-status-monitor/internal/channel"
	"uplink-status-monitor/internal/config"
	"uplink-status-monitor/internal/handlers"
	"uplink-status-monitor/internal/logging"
	"uplink-status-monitor/internal/monitor"
	"uplink-status-monitor/internal/naming"
	"uplink-status-monitor/internal/routeros"
	"uplink-status-monitor/internal/snapshot"
	"uplink-status-monitor/internal/zabbix"
)

// app is the wired process: one engine, one cache, one HTTP surface.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *snapshot.Store
	engine    *monitor.Engine
	scheduler *monitor.Scheduler
	handler   *handlers.Handler
}

func newApp(flags *rootFlags) (*app, error) {
	if err := config.LoadEnvFile(flags.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}
	return wire(cfg, logger), nil
}

func wire(cfg *config.Config, logger *zap.Logger) *app {
	httpClient := zabbix.NewHTTPClient(zabbix.HTTPClientConfig{
		Timeout:            cfg.Zabbix.TimeoutDur,
		UserAgent:          cfg.Zabbix.UserAgent,
		MaxIdleConns:       cfg.Refresh.Concurrency * 2,
		IdleConnTimeout:    90 * time.Second,
		InsecureSkipVerify: cfg.Zabbix.InsecureSkipVerify,
	})
	zbx := zabbix.NewClient(zabbix.Config{
		URL:        cfg.Zabbix.URL,
		User:       cfg.Zabbix.User,
		Password:   cfg.Zabbix.Password,
		Token:      cfg.Zabbix.Token,
		LoginParam: cfg.Zabbix.LoginParam,
		AuthHeader: cfg.Zabbix.AuthHeader,
		Timeout:    cfg.Zabbix.TimeoutDur,
	}, httpClient, logger.Named("zabbix"))

	prober := routeros.NewProber(routeros.Config{
		User:     cfg.RouterOS.User,
		Password: cfg.RouterOS.Password,
		Port:     cfg.RouterOS.Port,
		Timeout:  cfg.RouterOS.TimeoutDur,
	}, channel.NewClassifier(cfg.Channel.MainTags, cfg.Channel.BackupTags), logger.Named("routeros"))

	overrides := make([]naming.Override, 0, len(cfg.Naming.Overrides))
	for _, o := range cfg.Naming.Overrides {
		overrides = append(overrides, naming.Override{
			Site:              o.Site,
			Device:            o.Device,
			RedirectTelemetry: o.RedirectTelemetry,
		})
	}

	store := snapshot.NewStore()
	engine := monitor.NewEngine(monitor.Config{
		Primary: monitor.GroupQuery{Groups: cfg.Primary.Groups, NameFilter: cfg.Primary.NameFilter},
		Reserve: monitor.GroupQuery{Groups: cfg.Reserve.Groups, NameFilter: cfg.Reserve.NameFilter},
		Telemetry: monitor.TelemetryKeys{
			Loss:          cfg.Telemetry.LossKey,
			Response:      cfg.Telemetry.ResponseKey,
			ResponseScale: cfg.Telemetry.ResponseScale,
			Liveness:      cfg.Telemetry.LivenessKey,
		},
		ProbePort:   cfg.RouterOS.Port,
		Concurrency: cfg.Refresh.Concurrency,
		SiteTimeout: cfg.Refresh.SiteTimeoutDur,
	}, monitor.ZabbixAuthenticator(zbx), prober, naming.NewPolicy(cfg.Naming.DeviceSuffix, overrides), store, logger)

	refresh := func(ctx context.Context) error {
		_, err := engine.RunCycle(ctx)
		return err
	}

	return &app{
		cfg:       cfg,
		log:       logger,
		store:     store,
		engine:    engine,
		scheduler: monitor.NewScheduler("refresh", cfg.Refresh.IntervalDur, cfg.Refresh.Jitter, refresh, logger),
		handler:   handlers.New(engine, store, logger),
	}
}
