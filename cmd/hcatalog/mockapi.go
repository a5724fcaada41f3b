package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/configs"
	"github.com/Humphrey-He/hcatalog/internal/logging"
	"github.com/Humphrey-He/hcatalog/internal/mockapi"
)

func mockAPICmd() *cobra.Command {
	var (
		addr    string
		seed    int64
		count   int
		latency time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Run an in-memory product API",
		Long: `Run an in-memory product API that answers GET /products with the
same query keys and X-Total-Count header as the real one.

Examples:
  hcatalog mock-api
  hcatalog mock-api --addr :3000 --seed 42 --count 200 --latency 300ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockAPI(addr, seed, count, latency)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":3000", "Listen address")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed for the generated products")
	cmd.Flags().IntVar(&count, "count", 100, "Number of generated products")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Delay added to every response")

	return cmd
}

func runMockAPI(addr string, seed int64, count int, latency time.Duration) error {
	logger, _, err := logging.New(configs.LogConfig{Level: "info", Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	gin.SetMode(gin.ReleaseMode)
	api := mockapi.NewServer(mockapi.NewCatalog(mockapi.Generate(count, seed)), logger)
	api.SetLatency(latency)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock product api listening", zap.String("addr", addr), zap.Int("products", count))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
