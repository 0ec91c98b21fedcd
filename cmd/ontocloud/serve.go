package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twinfer/ontocloud/fuseki"
	"github.com/twinfer/ontocloud/rdf"
	"github.com/twinfer/ontocloud/server"
	"github.com/twinfer/ontocloud/ttl"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	fc := a.cfg.Fuseki
	client := fuseki.NewClient(fc.URL, fc.ClientOptions(a.logger)...)
	conv := a.cfg.Converter
	srv := server.New(store, client,
		server.WithLogger(a.logger),
		server.WithSerializer(ttl.New(conv.SerializerOptions()...)),
		server.WithDefaults(conv.BaseURI, conv.Namespace, rdf.Format(conv.Format)),
		server.WithFusekiDataset(fc.Dataset),
		server.WithMaxBodyBytes(a.cfg.Server.MaxBodyBytes),
	)

	httpServer := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening",
			zap.String("addr", httpServer.Addr),
			zap.String("database", a.cfg.Database.Driver),
			zap.String("fuseki", client.URL()))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
