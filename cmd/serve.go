package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabclean-cli/internal/server"
)

var (
	svPipeline pipelineFlags
	svAddr     string
	svMaxBody  int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cleaner over HTTP",
	Long: `Serve starts an HTTP API:

  GET  /healthz                          liveness probe
  POST /v1/clean?name=&delimiter=&format=  clean the CSV request body

Loading and threshold flags apply to every request.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := cfg
		if conf == nil {
			conf = defaults()
		}
		ropt, err := svPipeline.readOptions(cmd)
		if err != nil {
			return err
		}
		addr := conf.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = svAddr
		}
		maxBody := conf.MaxBodyBytes
		if cmd.Flags().Changed("max-body") {
			maxBody = svMaxBody
		}
		srv := server.New(server.Config{
			Clean:        svPipeline.cleanOptions(cmd),
			Read:         ropt,
			MaxBodyBytes: maxBody,
			Logger:       logger,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(addr) }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", zap.Error(err))
				return err
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	svPipeline.register(serveCmd)
	serveCmd.Flags().StringVar(&svAddr, "addr", ":8080", "listen address (overrides config server_addr)")
	serveCmd.Flags().Int64Var(&svMaxBody, "max-body", 10<<20, "maximum request body in bytes (overrides config max_body_bytes)")
}
