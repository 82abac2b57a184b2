// Package ops exposes the operator HTTP surface: a health probe and a
// sourcing trigger. Nothing here is end-user facing; a sourcing call is
// acknowledged, never awaited.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"fieldday/internal/platform/config"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
	"fieldday/internal/platform/store"
	docdom "fieldday/internal/services/documents/domain"
	sourcerdom "fieldday/internal/services/sourcer/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Server is a thin wrapper over chi + stdlib http.Server
type Server struct {
	addr    string
	srv     *http.Server
	store   *store.Store
	sourcer sourcerdom.RunnerPort
}

// New wires the operator routes. cfg is read under the caller's prefix:
// API_PORT and API_CORS_ORIGIN.
func New(cfg config.Conf, st *store.Store, runner sourcerdom.RunnerPort) *Server {
	if st == nil {
		panic("ops.Server requires a non nil store")
	}
	if runner == nil {
		panic("ops.Server requires a non nil sourcer")
	}
	s := &Server{
		addr:    cfg.MayPort("API_PORT", "4000"),
		store:   st,
		sourcer: runner,
	}

	m := chi.NewRouter()
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.MayString("API_CORS_ORIGIN", "*")},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	m.Get("/healthz", s.handleHealthz)
	m.Post("/v1/source", s.handleSource)

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run starts the server and blocks until Shutdown or listen failure
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("ops")
	log.Info().Str("addr", s.addr).Msg("http listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Guard(r.Context()); err != nil {
		writeError(w, perr.Unavailablef("store unreachable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sourceRequest is the operator backfill trigger body
type sourceRequest struct {
	IndexURL   string `json:"indexUrl" validate:"required,url"`
	Provider   string `json:"provider" validate:"required"`
	Sport      string `json:"sport" validate:"required"`
	DocType    string `json:"documentType" validate:"required"`
	SeasonYear *int   `json:"seasonYear,omitempty"`
}

// handleSource accepts a sourcing run and acknowledges; the run proceeds in
// the background and reports only through logs
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, perr.JSONErrf("request body is not valid json"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, perr.Wrap(err, perr.ErrorCodeValidation, "request failed validation"))
		return
	}

	// shutdown should not cancel an accepted run mid-fetch; detach from the
	// request context but keep its log fields
	runCtx := context.WithoutCancel(r.Context())
	go func() {
		n, err := s.sourcer.SourceIndex(runCtx, sourcerdom.Request{
			IndexURL:   req.IndexURL,
			Provider:   docdom.Provider(req.Provider),
			Sport:      docdom.Sport(req.Sport),
			DocType:    docdom.DocType(req.DocType),
			SeasonYear: req.SeasonYear,
		})
		if err != nil {
			logger.Named("ops").Error().Str("index", req.IndexURL).Err(err).
				Msg("background sourcing run failed")
			return
		}
		logger.Named("ops").Info().Str("index", req.IndexURL).Int("inserted", n).
			Msg("background sourcing run finished")
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, wire := perr.HTTP(err)
	writeJSON(w, status, wire)
}
