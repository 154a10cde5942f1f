package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/co2twin/internal/ingest"
	"github.com/lox/co2twin/internal/intervention"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/session"
	"github.com/lox/co2twin/internal/store"
)

// Repository is the station storage the server reads and the engine mutates.
type Repository interface {
	intervention.Repository
	ListStations(ctx context.Context) ([]models.Station, error)
}

type Server struct {
	repo    Repository
	engine  *intervention.Engine
	sess    *session.Session
	weather *ingest.WeatherCache
	port    string
	retries int
}

func NewServer(repo Repository, sess *session.Session, weather *ingest.WeatherCache, port string) *Server {
	if sess == nil {
		sess = &session.Session{}
	}
	if weather == nil {
		weather = ingest.NewWeatherCache()
	}
	return &Server{
		repo:    repo,
		engine:  intervention.NewEngine(repo),
		sess:    sess,
		weather: weather,
		port:    port,
		retries: 3,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stations", s.handleStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{name}/display", s.handleDisplay).Methods(http.MethodGet)
	api.HandleFunc("/stations/{name}/suggest", s.handleSuggest).Methods(http.MethodGet)
	api.HandleFunc("/cities/{city}/sectors", s.handleSectors).Methods(http.MethodGet)
	api.HandleFunc("/cities/{city}/scenario", s.handleScenario).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/recommendations", s.handleRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/grid", s.handleGrid).Methods(http.MethodGet)
	api.HandleFunc("/interventions", s.handleApply).Methods(http.MethodPost)
	api.HandleFunc("/report/start", s.handleReportStart).Methods(http.MethodPost)
	api.HandleFunc("/report/stop", s.handleReportStop).Methods(http.MethodPost)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Token string `json:"integrity_token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeEngineError maps rejected interventions onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var verr *intervention.ValidationError
	var conflict *intervention.ConcurrencyConflict
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: verr.Field})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Token: conflict.Actual})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}
