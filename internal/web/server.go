// Package web serves the vaultcap browser UI: the capsule catalog with
// install, update and remove actions, module ordering, the operation
// history, live progress over a websocket, and Prometheus metrics.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dailyaf/vaultcap/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the vaultcap web UI.
// It attaches a progress hub and, when env has none, metrics registered on a
// fresh registry served at /metrics.
func NewServer(env *ops.Env, version, bind string, port int) *http.Server {
	handler, hub := newHandler(env, version)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not track hijacked connections.
	srv.RegisterOnShutdown(hub.Close)
	return srv
}

func newHandler(env *ops.Env, version string) (http.Handler, *Hub) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if env.Metrics == nil {
		env.Metrics = ops.NewMetrics(reg)
	}

	hub := NewHub(env.Logger)
	env.Progress = chainProgress(env.Progress, hub.Publish)

	h := &Handlers{
		env:      env,
		renderer: NewRenderer(templateSub, version),
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/capsules", http.StatusFound)
	})
	mux.HandleFunc("GET /capsules", h.HandleCatalog)
	mux.HandleFunc("POST /capsules/refresh", h.HandleRefresh)
	mux.HandleFunc("POST /capsules/{id}/install", h.HandleInstall)
	mux.HandleFunc("POST /capsules/{id}/update", h.HandleUpdate)
	mux.HandleFunc("DELETE /capsules/{id}", h.HandleRemove)
	mux.HandleFunc("GET /modules", h.HandleModules)
	mux.HandleFunc("POST /modules/{id}/move", h.HandleModuleMove)
	mux.HandleFunc("GET /history", h.HandleHistory)
	mux.HandleFunc("GET /events", hub.HandleEvents)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Browsers label cross-site requests; state-changing ones from another
	// origin are refused with 403 before reaching a handler.
	cop := http.NewCrossOriginProtection()
	return securityHeaders(cop.Handler(mux)), hub
}

// chainProgress calls both funcs, skipping a nil first.
func chainProgress(first, second ops.ProgressFunc) ops.ProgressFunc {
	if first == nil {
		return second
	}
	return func(ev ops.Event) {
		first(ev)
		second(ev)
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *log.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Printf("vaultcap UI running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
