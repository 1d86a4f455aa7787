package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"halmon/internal/logger"
	"halmon/internal/routes"
	"halmon/internal/services"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Monitor in the background and serve the HTTP API",
		Long: `Starts monitoring immediately and serves the control API, the alert
websocket and Prometheus metrics until interrupted.

Example:
  halmon serve --port 9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
				return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
			}
			cfg.Server.Enabled = true
			return runServe()
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen address (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}

func runServe() error {
	if err := initLogger(false); err != nil {
		return err
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := a.startHTTP()
	if err != nil {
		return err
	}
	a.monitor.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("[SERVER] shutting down")

	a.stopHTTP(srv)
	return nil
}

// startHTTP listens synchronously so a busy port is reported, then serves in the background
func (a *App) startHTTP() (*http.Server, error) {
	gin.SetMode(a.cfg.Server.Mode)

	var auth *services.AuthService
	if a.hub != nil {
		var err error
		auth, err = services.NewAuthService(a.cfg.Auth.Secret, a.cfg.Auth.TokenExpiry, "")
		if err != nil {
			return nil, err
		}
	}

	router := routes.NewRouter(a.cfg.Server, routes.RouterDeps{
		Monitor: a.monitor,
		Store:   a.store,
		Hub:     a.hub,
		Auth:    auth,
		Metrics: a.metrics,
	})

	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[SERVER] %v", err)
		}
	}()
	logger.Infof("[SERVER] listening on http://%s", addr)
	return srv, nil
}

func (a *App) stopHTTP(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("[SERVER] forced shutdown: %v", err)
	}
}
