// Package service prices a trip from a per-vehicle rate table and the
// distance reported by the routing service.
package service

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/example/driverhub/internal/valuation/routing"
)

// ErrUnsupportedVehicle rejects vehicle types missing from the rate table.
type ErrUnsupportedVehicle struct {
	VehicleType string
}

func (e *ErrUnsupportedVehicle) Error() string {
	return fmt.Sprintf("vehicle type %q is not supported", e.VehicleType)
}

// Rate prices one vehicle type per kilometer.
type Rate struct {
	BasePricePerKm  float64
	CommissionPerKm float64
}

// DefaultRates mirrors the fleet's standard vehicle classes.
var DefaultRates = map[string]Rate{
	"bike":  {BasePricePerKm: 8, CommissionPerKm: 2},
	"sedan": {BasePricePerKm: 14, CommissionPerKm: 5},
	"suv":   {BasePricePerKm: 17, CommissionPerKm: 7},
	"truck": {BasePricePerKm: 20, CommissionPerKm: 10},
}

// DefaultTaxRate is applied on the base cost.
const DefaultTaxRate = 0.15

// DistanceSource resolves an address pair to distance and duration.
type DistanceSource interface {
	DistanceMatrix(ctx context.Context, fromAddress, toAddress string) (routing.Matrix, error)
}

// QuoteRequest is the input to a valuation.
type QuoteRequest struct {
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	VehicleType string `json:"vehicle_type"`
}

// Quote is the priced result.
type Quote struct {
	Cost            float64 `json:"cost"`
	RiderCommission float64 `json:"rider_commission"`
	Tax             float64 `json:"tax"`
	TotalCost       float64 `json:"total_cost"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// Service computes quotes.
type Service struct {
	distances DistanceSource
	rates     map[string]Rate
	taxRate   float64
	logger    *zap.Logger
}

// New constructs the valuation service. Nil rates fall back to DefaultRates.
func New(distances DistanceSource, rates map[string]Rate, taxRate float64, logger *zap.Logger) *Service {
	if rates == nil {
		rates = DefaultRates
	}
	if taxRate <= 0 {
		taxRate = DefaultTaxRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{distances: distances, rates: rates, taxRate: taxRate, logger: logger}
}

// CalculateQuote prices the trip. Routing failures propagate as
// routing.ErrUnavailable; an unknown vehicle type fails before any network
// call.
func (s *Service) CalculateQuote(ctx context.Context, req QuoteRequest) (Quote, error) {
	rate, ok := s.rates[req.VehicleType]
	if !ok {
		return Quote{}, &ErrUnsupportedVehicle{VehicleType: req.VehicleType}
	}

	matrix, err := s.distances.DistanceMatrix(ctx, req.FromAddress, req.ToAddress)
	if err != nil {
		return Quote{}, err
	}

	cost := round2(rate.BasePricePerKm * matrix.DistanceKm)
	commission := round2(rate.CommissionPerKm * matrix.DistanceKm)
	tax := round2(cost * s.taxRate)
	quote := Quote{
		Cost:            cost,
		RiderCommission: commission,
		Tax:             tax,
		TotalCost:       round2(cost + tax),
		DistanceKm:      matrix.DistanceKm,
		DurationMinutes: matrix.DurationMinutes,
	}
	s.logger.Info("quote calculated",
		zap.String("vehicle_type", req.VehicleType),
		zap.Float64("distance_km", matrix.DistanceKm),
		zap.Float64("total_cost", quote.TotalCost))
	return quote, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
