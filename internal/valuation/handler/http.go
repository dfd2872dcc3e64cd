package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/driverhub/internal/valuation/routing"
	valsvc "github.com/example/driverhub/internal/valuation/service"
)

// HTTP exposes the valuation endpoint.
type HTTP struct {
	svc *valsvc.Service
}

// New creates the handler.
func New(svc *valsvc.Service) *HTTP {
	return &HTTP{svc: svc}
}

// Router builds the chi router.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Post("/v1/valuation", h.quote)
	return r
}

func (h *HTTP) quote(w http.ResponseWriter, r *http.Request) {
	var req valsvc.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.FromAddress) == "" || strings.TrimSpace(req.ToAddress) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from_address and to_address are required"})
		return
	}

	quote, err := h.svc.CalculateQuote(r.Context(), req)
	if err != nil {
		var unsupported *valsvc.ErrUnsupportedVehicle
		var unavailable *routing.ErrUnavailable
		switch {
		case errors.As(err, &unsupported):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.As(err, &unavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
