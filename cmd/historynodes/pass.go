package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Metalcape/zebra-flyclient/upgrade"
)

const metricsShutdownTimeout = 5 * time.Second

// passFunc runs one pass, stopping when cancel fires
type passFunc func(cancel <-chan upgrade.CancelFormatChange, opts []upgrade.Option) error

// runPass runs fn until it returns or ctx is done. While it runs the pass
// metrics are served on metricsAddr, when set.
func runPass(ctx context.Context, log logger.Logger, metricsAddr string, fn passFunc) error {
	reg := prometheus.NewRegistry()
	opts := []upgrade.Option{
		upgrade.WithLogger(log),
		upgrade.WithRegisterer(reg),
	}

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		cancel, stop := upgrade.CancelOnDone(ctx)
		defer stop()
		return fn(cancel, opts)
	})

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: time.Second,
		}
		g.Go(func() error {
			log.Infof("serving metrics on %s", metricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-ctx.Done():
			case <-done:
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
