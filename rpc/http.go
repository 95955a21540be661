package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wagmicharge/native/custody"
)

// Server exposes the read-only custody query interface over HTTP. All
// state-changing entry points stay behind the engine's authenticated caller
// boundary; the server never moves value.
type Server struct {
	engine *custody.Engine
	router http.Handler
}

// NewServer constructs a configured HTTP router over the engine.
func NewServer(engine *custody.Engine) *Server {
	srv := &Server{engine: engine}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/v1", func(api chi.Router) {
		api.Get("/orders/settleable", s.GetSettleable)
		api.Get("/orders/day/{day}", s.GetDayOrders)
		api.Get("/orders/{id}", s.GetOrder)
		api.Get("/assets", s.ListAssets)
		api.Get("/assets/{symbol}", s.GetAsset)
		api.Get("/health", s.GetHealth)
		api.Get("/admins", s.GetAdmins)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
