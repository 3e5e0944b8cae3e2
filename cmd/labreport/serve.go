package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thywilljoshua/lab-report-analyzer/internal/analysis"
	"github.com/thywilljoshua/lab-report-analyzer/internal/convert"
	"github.com/thywilljoshua/lab-report-analyzer/internal/server"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var addr string
	var gops bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction and analysis HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, zap.NewAtomicLevelAt(zap.InfoLevel))
			if err != nil {
				return err
			}
			defer a.close()
			log := a.zap.Sugar()

			if gops {
				if err := agent.Listen(agent.Options{}); err != nil {
					log.Warnf("gops agent: %v", err)
				} else {
					defer agent.Close()
				}
			}

			var refs analysis.Retriever
			svc, store, err := a.references(ctx)
			if err != nil {
				log.Warnw("reference index unavailable", "error", err)
			} else {
				defer store.Close()
				refs = svc
			}

			cc := a.convertConfig()
			api := server.New(server.Config{
				Extract: func(ctx context.Context, data []byte) (convert.Result, error) {
					return convert.Extract(ctx, data, cc)
				},
				Analyzer:       a.analyzer(refs),
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
				RequestTimeout: a.cfg.Server.RequestTimeout,
			}, a.log)

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			log.Infof("HTTP serving on %s", addr)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Infow("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&gops, "gops", false, "start the gops diagnostics agent")
	return cmd
}
