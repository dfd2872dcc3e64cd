package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/driverhub/internal/driver/domain"
	"github.com/example/driverhub/internal/driver/registry"
)

// HTTP exposes the driver endpoints.
type HTTP struct {
	reg *registry.Registry
}

// NewHTTP constructs a handler.
func NewHTTP(reg *registry.Registry) *HTTP {
	return &HTTP{reg: reg}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Post("/v1/drivers", h.createDriver)
	r.Get("/v1/drivers", h.listDrivers)
	r.Get("/v1/drivers/nearby", h.findNearby)
	r.Post("/v1/drivers/location", h.updateLocation)
	r.Put("/v1/drivers/{driverID}", h.updateDriver)
	r.Patch("/v1/drivers/{driverID}/status", h.setStatus)
	r.Get("/v1/drivers/{driverID}/details", h.getDetails)
	r.Get("/v1/drivers/{driverID}", h.getLocation)
	return r
}

type createDriverRequest struct {
	DriverID     string `json:"driverId"`
	Name         string `json:"name"`
	VehicleType  string `json:"vehicleType"`
	LicensePlate string `json:"licensePlate"`
	PhoneNumber  string `json:"phoneNumber"`
}

func (h *HTTP) createDriver(w http.ResponseWriter, r *http.Request) {
	var payload createDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}
	profile, err := h.reg.CreateDriver(r.Context(), domain.DriverProfile{
		DriverID:     payload.DriverID,
		Name:         payload.Name,
		VehicleType:  payload.VehicleType,
		LicensePlate: payload.LicensePlate,
		PhoneNumber:  payload.PhoneNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *HTTP) updateDriver(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}
	profile, err := h.reg.UpdateDriver(r.Context(), chi.URLParam(r, "driverID"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *HTTP) listDrivers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.reg.ListDrivers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": profiles})
}

type setStatusRequest struct {
	IsOnline  *bool    `json:"isOnline"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *HTTP) setStatus(w http.ResponseWriter, r *http.Request) {
	var payload setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}
	if payload.IsOnline == nil {
		writeError(w, domain.NewValidationError("isOnline", "is required"))
		return
	}
	coords, err := coordsFromOptional(payload.Latitude, payload.Longitude)
	if err != nil {
		writeError(w, err)
		return
	}
	details, err := h.reg.SetStatus(r.Context(), chi.URLParam(r, "driverID"), *payload.IsOnline, coords)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *HTTP) updateLocation(w http.ResponseWriter, r *http.Request) {
	driverID := r.Header.Get("driver-id")
	if driverID == "" {
		writeError(w, domain.NewValidationError("driver-id", "header is required"))
		return
	}
	lat, err := strconv.ParseFloat(r.Header.Get("latitude"), 64)
	if err != nil {
		writeError(w, domain.NewValidationError("latitude", "header must be a number"))
		return
	}
	lon, err := strconv.ParseFloat(r.Header.Get("longitude"), 64)
	if err != nil {
		writeError(w, domain.NewValidationError("longitude", "header must be a number"))
		return
	}

	online := true
	var payload struct {
		IsOnline *bool `json:"isOnline"`
	}
	// An empty body keeps the default; a malformed one is rejected.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if !errors.Is(err, io.EOF) {
			writeError(w, domain.NewValidationError("body", "invalid JSON"))
			return
		}
	} else if payload.IsOnline != nil {
		online = *payload.IsOnline
	}

	loc, err := h.reg.UpdateLocation(r.Context(), driverID, domain.Coordinates{Latitude: lat, Longitude: lon}, online)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *HTTP) getDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.reg.GetDriverDetails(r.Context(), chi.URLParam(r, "driverID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *HTTP) getLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.reg.GetDriverLocation(r.Context(), chi.URLParam(r, "driverID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *HTTP) findNearby(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.Header.Get("latitude"), 64)
	if err != nil {
		writeError(w, domain.NewValidationError("latitude", "header must be a number"))
		return
	}
	lon, err := strconv.ParseFloat(r.Header.Get("longitude"), 64)
	if err != nil {
		writeError(w, domain.NewValidationError("longitude", "header must be a number"))
		return
	}
	radius := registry.DefaultSearchRadiusKm
	if raw := r.URL.Query().Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, domain.NewValidationError("radius", "must be a number"))
			return
		}
	}
	drivers, err := h.reg.FindNearbyDrivers(r.Context(), domain.Coordinates{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": drivers})
}

// coordsFromOptional enforces that latitude and longitude arrive together.
func coordsFromOptional(lat, lon *float64) (*domain.Coordinates, error) {
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, domain.NewValidationError("location", "latitude and longitude must be supplied together")
	default:
		return &domain.Coordinates{Latitude: *lat, Longitude: *lon}, nil
	}
}

func writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var unavailable *domain.UnavailableError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDriverNotFound), errors.Is(err, domain.ErrLocationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDriverExists):
		status = http.StatusConflict
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
