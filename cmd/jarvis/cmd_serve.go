package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jarvis/internal/digest"
	"jarvis/internal/knowledge"
	"jarvis/internal/transport"
)

// serveCmd runs the Twilio webhook server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WhatsApp webhook server",
	Long: `Starts the HTTP server Twilio posts WhatsApp messages to.

Endpoints:
  GET  /           health check
  GET  /whatsapp   probe
  POST /whatsapp   webhook, replies with TwiML

The knowledge file watcher and the daily digest start with the server
when they are configured.`,
	RunE: runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.knowledge != nil && cfg.Knowledge.Watch {
		w, err := knowledge.NewWatcher(a.knowledge)
		if err != nil {
			logger.Warn("knowledge watcher disabled", zap.Error(err))
		} else if err := w.Start(ctx); err != nil {
			logger.Warn("knowledge watcher disabled", zap.Error(err))
			w.Stop()
		} else {
			defer w.Stop()
		}
	}

	if cfg.Digest.Enabled {
		sched, err := digest.New(a.notes, cfg.Digest.At, cfg.Digest.Count, a.location,
			func(_ context.Context, text string) {
				logger.Info("daily digest", zap.String("text", text))
			})
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	handler := transport.NewHandler(a.router, transport.Options{Path: cfg.Server.Path, Logger: logger, Budget: a.guard})
	return transport.Serve(ctx, fmt.Sprintf(":%d", port), handler, logger)
}
