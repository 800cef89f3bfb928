package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tbourn/telegram-warehouse/internal/config"
	httpapi "github.com/tbourn/telegram-warehouse/internal/http"
	"github.com/tbourn/telegram-warehouse/internal/sysutil"
)

const shutdownGrace = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.store()
			if err != nil {
				return err
			}
			lk := a.lake()
			if err := lk.EnsureStructure(); err != nil {
				return err
			}

			gin.SetMode(a.cfg.GinMode)
			r := gin.New()
			httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, Lake: lk, Loader: a.loader(db)}, a.cfg)

			ctx, stop := sysutil.SignalContext(cmd.Context())
			defer stop()
			return a.listen(ctx, newServer(a.cfg, r))
		},
	}
}

// newServer applies the configured timeouts and limits to h.
func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// listen serves until ctx is done, then drains in-flight requests.
func (a *app) listen(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Str("base_path", a.cfg.APIBasePath).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down http server")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
