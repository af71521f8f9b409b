package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezoic/churnpulse/pkg/log"
	"github.com/ezoic/churnpulse/server"
	"github.com/ezoic/churnpulse/train"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		artifactsDir string
		host         string
		port         int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /health, /predict and /metrics",
		Long: `Load <artifacts-dir>/model.gob once and serve predictions over HTTP.
The server also starts without a model; /predict then answers 500 until a
model has been trained and the server restarted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("artifacts-dir") {
				cfg.Paths.ArtifactsDir = artifactsDir
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), filepath.Join(cfg.Paths.ArtifactsDir, train.ModelFile), cfg.Server.Addr())
		},
	}
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "Directory holding model.gob (default: paths.artifacts_dir)")
	cmd.Flags().StringVar(&host, "host", "", "Listen host (default: server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: server.port)")
	return cmd
}

func runServe(ctx context.Context, modelPath, addr string) error {
	logger := log.GetLoggerWithName("serve")

	handle, err := server.LoadModelHandle(modelPath)
	if err != nil {
		return err
	}
	srv := server.New(handle)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
