package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/roffe/gopcr/cmd/gopcr/pkg/ui"
	"github.com/roffe/gopcr/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runUI shows the channel list while the session keeps it up to date. The
// poll loop, the terminal and the optional metrics endpoint share one
// lifetime: when any of them stops the others are shut down.
func (a *app) runUI(ctx context.Context, powerOn bool) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if powerOn {
		if _, err := s.Initialize(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	w := s.Window()
	list := ui.New(s, s.Events(), ui.NewModel(w.Top, w.Selected))

	g.Go(func() error {
		return s.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return list.Run(gctx)
	})

	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, metrics.Handler(a.reg))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.log.Info("serving metrics", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	a.log.Info("session stats", zap.Stringer("stats", s.Stats()))
	return err
}
