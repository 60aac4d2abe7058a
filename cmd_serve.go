package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shift_handover/internal/assistant"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the handover web service",
	Long: `Serves the JSON API, the live websocket feed and the static UI.

Without DATABASE_URL the records live in process memory: every browser
connected to this process shares them, but nothing survives a restart.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	sum, err := assistant.New(ctx, assistant.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, log)
	if err != nil {
		return err
	}

	sessions, err := newSessionStore(cfg.SessionSecret, log)
	if err != nil {
		return err
	}

	s := newServer(st, sum, sessions, cfg.StaticDir, log)
	defer s.hub.Close()

	g, gctx := errgroup.WithContext(ctx)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		log.Info("server starting",
			zap.String("addr", cfg.Listen),
			zap.String("store", st.Mode()),
			zap.Bool("ai", sum.Enabled()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
