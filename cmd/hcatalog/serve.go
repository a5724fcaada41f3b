package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/configs"
	"github.com/Humphrey-He/hcatalog/internal/logging"
	"github.com/Humphrey-He/hcatalog/internal/server"
	"github.com/Humphrey-He/hcatalog/pkg/cache"
	"github.com/Humphrey-He/hcatalog/pkg/catalog"
	"github.com/Humphrey-He/hcatalog/pkg/client"
	"github.com/Humphrey-He/hcatalog/pkg/loader"
)

func serveCmd() *cobra.Command {
	var (
		configFile string
		addr       string
		poll       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP front end",
		Long: `Run the catalog HTTP front end against the product API named by
api.base_url. Settings come from the config file and HCATALOG_* variables.

Examples:
  hcatalog serve --config configs/hcatalog.yaml
  HCATALOG_API_BASE_URL=http://localhost:3000 hcatalog serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile, addr, poll)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (yaml or json)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&poll, "poll", false, "Poll the config file instead of watching it")

	return cmd
}

func runServe(configFile, addr string, poll bool) error {
	vc, err := configs.LoadViperConfig(configFile, false)
	if err != nil {
		return err
	}
	defer vc.Close()
	config := vc.Get()
	if addr != "" {
		config.Server.Addr = addr
	}

	logger, level, err := logging.New(config.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	vc.SetLogger(logger)

	cl, err := client.New(config.API.BaseURL,
		client.WithTimeout(config.API.Timeout),
		client.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var (
		l       loader.Loader = cl
		limited *loader.RateLimitedLoader
	)
	if config.API.RateLimit > 0 {
		limited = loader.NewRateLimitedLoader(cl, config.API.RateLimit, config.API.Burst).(*loader.RateLimitedLoader)
		l = limited
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cacheOptions := append(config.CacheOptions(), cache.WithLogger(logger))
	if config.Metrics.Enable {
		cacheOptions = append(cacheOptions, cache.WithPrometheus(reg, config.Metrics.Namespace))
	}
	fc, err := cache.NewWithOptions(l, cacheOptions...)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	defer fc.Close()

	serverOptions := []server.Option{
		server.WithFacets(cl),
		server.WithLogger(logger),
		server.WithSessionOptions(
			catalog.WithSearchDelay(config.Query.SearchDebounce),
			catalog.WithPriceDelay(config.Query.PriceDebounce),
			catalog.WithDefaultLimit(config.Query.DefaultLimit),
		),
	}
	if config.Metrics.Enable {
		serverOptions = append(serverOptions, server.WithMetrics(reg, config.Metrics.Path))
	}
	srv, err := server.New(fc, config.Server, serverOptions...)
	if err != nil {
		return err
	}

	if configFile != "" && config.Extensions.HotReload.Enable {
		vc.Subscribe(func(c *configs.Config) {
			if err := logging.SetLevel(level, c.Log.Level); err != nil {
				logger.Warn("ignoring log level", zap.Error(err))
			}
			switch {
			case limited != nil:
				limited.SetLimit(c.API.RateLimit, c.API.Burst)
			case c.API.RateLimit > 0:
				logger.Warn("api.rate_limit takes effect after restart")
			}
			logger.Info("configuration reloaded",
				zap.String("log_level", c.Log.Level),
				zap.Float64("rate_limit", c.API.RateLimit))
		})
		if poll {
			vc.Watch(config.Extensions.HotReload.WatchInterval)
		} else {
			vc.EnableHotReload()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("catalog ready",
		zap.String("api", cl.BaseURL()),
		zap.String("addr", config.Server.Addr),
		zap.Int("max_entries", config.Cache.MaxEntries))
	return srv.Run(ctx)
}
