package mcpserver

import (
	"encoding/json"
	"log"
	"net/http"

	"mcpcalc/internal/calculator"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HTTPHandler serves the streamable HTTP transport of the selected runtime at
// endpoint, plus GET /healthz.
func HTTPHandler(d *calculator.Dispatcher, opts Options, endpoint string) (http.Handler, error) {
	opts = opts.withDefaults()
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	var mcpHandler http.Handler
	switch opts.Runtime {
	case RuntimeGoSDK:
		mcpHandler = newGoSDKHTTPHandler(d, opts)
	case RuntimeMCPGo:
		h, err := newMCPGoHTTPHandler(d, opts, endpoint)
		if err != nil {
			return nil, err
		}
		mcpHandler = h
	default:
		return nil, unsupportedRuntime(opts.Runtime)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"name":    opts.Name,
			"version": opts.Version,
			"runtime": opts.Runtime,
		})
	})
	r.Handle(endpoint, mcpHandler)

	return r, nil
}
