package api

import (
	"context"
	"net/http"
	"time"

	"github.com/opensar/rescue/infra/logger"
)

// StartServer serves the API on addr until the context is canceled.
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	log := logger.New("api-server")
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
	}()
	log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
