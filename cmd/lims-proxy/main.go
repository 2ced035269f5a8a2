// Command lims-proxy serves LIMS GETs over HTTP, returning the aggregated
// XML document produced by the client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/client"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/config"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/logging"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (env: LIMS_*)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := cfg.LoggingSetup()
	logCfg.Service = logging.ComponentProxy
	logging.Setup(logCfg)
	logger := logging.NewLogger(logging.ComponentProxy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limsClient, closeClient, err := config.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create LIMS client")
	}
	defer closeClient()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      newRouter(limsClient, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("address", cfg.ListenAddr).
		Str("host", limsClient.Host()).
		Str("cache", cfg.Cache.Backend).
		Msg("Starting LIMS proxy server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("LIMS proxy stopped")
}

func newRouter(limsClient *client.Client, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/lims", limsGetHandler(limsClient))
	r.Get("/lims/*", limsGetHandler(limsClient))

	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("Request served")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// limsGetHandler serves GET /lims/{endpoint} and GET /lims?uri=...&uri=...
// Remaining query parameters are forwarded to the first endpoint, except
// get_all which toggles pagination harvesting.
func limsGetHandler(limsClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		var endpoints []string
		if endpoint := chi.URLParam(r, "*"); endpoint != "" {
			endpoints = []string{endpoint}
		} else {
			endpoints = query["uri"]
			query.Del("uri")
		}

		opts := []client.GetOption{}
		if v := query.Get("get_all"); v != "" {
			getAll, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid get_all %q", v), http.StatusBadRequest)
				return
			}
			opts = append(opts, client.WithGetAll(getAll))
			query.Del("get_all")
		}
		if len(query) > 0 {
			opts = append(opts, client.WithQuery(client.Query(query)))
		}

		body, err := limsClient.Get(r.Context(), endpoints, opts...)
		if err != nil {
			http.Error(w, fmt.Sprintf("LIMS request failed: %v", err), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", client.ContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// statusFor maps client errors to proxy response codes.
func statusFor(err error) int {
	var terr *client.TransportError
	switch {
	case errors.Is(err, client.ErrUnknownResource),
		errors.Is(err, client.ErrMixedResource),
		errors.Is(err, client.ErrNoEndpoints):
		return http.StatusBadRequest
	case errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
