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

	"github.com/bitfsorg/doginals-go/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var (
		opts   server.Options
		rescan bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), opts, rescan)
		},
	}
	cmd.Flags().DurationVar(&opts.PriceCacheTTL, "price-cache", server.DefaultPriceCacheTTL, "how long GET /v1/price responses are reused")
	cmd.Flags().BoolVar(&rescan, "rescan", false, "rescan the chain when importing the funding address")
	return cmd
}

func (a *app) serve(ctx context.Context, opts server.Options, rescan bool) error {
	w, err := a.openWallet()
	if err != nil {
		return err
	}
	rpc, err := a.newRPC()
	if err != nil {
		return err
	}
	svc, store, err := a.service(w, rpc, a.cfg.Chain.BroadcastDelay)
	if err != nil {
		return err
	}
	defer store.Close()
	// Runs before store.Close: a job still broadcasting keeps the journal.
	defer func() {
		a.logger.Info("waiting for running inscription job")
		svc.Close()
	}()

	if err := prepareNode(ctx, rpc, svc.FundingAddress(), rescan, a.logger); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           server.New(svc, opts, a.logger.Named("http")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go waitForSignal(a.logger, func() {
		defer close(stopped)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown http server", zap.Error(err))
		}
	})

	a.logger.Info("http server listening",
		zap.String("addr", a.cfg.ListenAddr),
		zap.String("network", a.cfg.Network),
		zap.String("funding_address", svc.FundingAddress()))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	a.logger.Info("http server stopped")
	return nil
}

func waitForSignal(logger *zap.Logger, callback func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)

	sig := <-sigCh
	logger.Info("signal arrived", zap.String("signal", sig.String()))
	callback()
}
