// Package profile implements the durable profile store. The Postgres
// implementation also writes outbox rows so profile changes reach the event
// bus exactly once; the memory implementation backs tests and DSN-less runs.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/driverhub/internal/driver/domain"
)

// Schema creates the tables the Postgres store depends on.
const Schema = `
CREATE TABLE IF NOT EXISTS driver_profiles (
    driver_id     TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    vehicle_type  TEXT NOT NULL DEFAULT 'sedan',
    license_plate TEXT NOT NULL DEFAULT '',
    phone_number  TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS driver_outbox (
    id         BIGSERIAL PRIMARY KEY,
    topic      TEXT NOT NULL,
    payload    JSONB NOT NULL,
    published  BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore is the durable domain.ProfileStore backed by Postgres.
type PostgresStore struct {
	db      *sql.DB
	clock   domain.Clock
	subject string
}

// NewPostgresStore constructs the store. Profile change events are staged on
// the outbox under the given subject for the dispatcher to publish.
func NewPostgresStore(db *sql.DB, clock domain.Clock, subject string) *PostgresStore {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if subject == "" {
		subject = "driver.events"
	}
	return &PostgresStore{db: db, clock: clock, subject: subject}
}

// Create inserts a new profile. The insert and the outbox row share one
// transaction; a duplicate id fails with ErrDriverExists and writes nothing.
func (s *PostgresStore) Create(ctx context.Context, p domain.DriverProfile) (domain.DriverProfile, error) {
	if p.VehicleType == "" {
		p.VehicleType = domain.DefaultVehicleType
	}
	now := s.clock.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO driver_profiles (driver_id, name, vehicle_type, license_plate, phone_number, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         ON CONFLICT (driver_id) DO NOTHING`,
		p.DriverID, p.Name, p.VehicleType, p.LicensePlate, p.PhoneNumber, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}
	if affected == 0 {
		return domain.DriverProfile{}, fmt.Errorf("%w: %s", domain.ErrDriverExists, p.DriverID)
	}

	if err := s.stageEvent(ctx, tx, domain.EventDriverCreated, p, now); err != nil {
		return domain.DriverProfile{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}
	return p, nil
}

// Update merges only the supplied fields into an existing profile.
func (s *PostgresStore) Update(ctx context.Context, driverID string, patch domain.ProfilePatch) (domain.DriverProfile, error) {
	assignments := []string{"updated_at = $1"}
	args := []any{s.clock.Now()}
	appendField := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendField("name", patch.Name)
	appendField("vehicle_type", patch.VehicleType)
	appendField("license_plate", patch.LicensePlate)
	appendField("phone_number", patch.PhoneNumber)
	args = append(args, driverID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(
		`UPDATE driver_profiles SET %s WHERE driver_id = $%d
         RETURNING driver_id, name, vehicle_type, license_plate, phone_number, created_at, updated_at`,
		strings.Join(assignments, ", "), len(args))
	var p domain.DriverProfile
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&p.DriverID, &p.Name, &p.VehicleType, &p.LicensePlate, &p.PhoneNumber, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DriverProfile{}, fmt.Errorf("%w: %s", domain.ErrDriverNotFound, driverID)
	}
	if err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}

	if err := s.stageEvent(ctx, tx, domain.EventDriverUpdated, p, p.UpdatedAt); err != nil {
		return domain.DriverProfile{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}
	return p, nil
}

// Get fetches a single profile.
func (s *PostgresStore) Get(ctx context.Context, driverID string) (domain.DriverProfile, error) {
	var p domain.DriverProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT driver_id, name, vehicle_type, license_plate, phone_number, created_at, updated_at
         FROM driver_profiles WHERE driver_id = $1`, driverID).
		Scan(&p.DriverID, &p.Name, &p.VehicleType, &p.LicensePlate, &p.PhoneNumber, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DriverProfile{}, fmt.Errorf("%w: %s", domain.ErrDriverNotFound, driverID)
	}
	if err != nil {
		return domain.DriverProfile{}, domain.Unavailable("profile store", err)
	}
	return p, nil
}

// List returns every profile. No pagination; fleet scale keeps this small.
func (s *PostgresStore) List(ctx context.Context) ([]domain.DriverProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT driver_id, name, vehicle_type, license_plate, phone_number, created_at, updated_at
         FROM driver_profiles ORDER BY driver_id`)
	if err != nil {
		return nil, domain.Unavailable("profile store", err)
	}
	defer rows.Close()

	var profiles []domain.DriverProfile
	for rows.Next() {
		var p domain.DriverProfile
		if err := rows.Scan(&p.DriverID, &p.Name, &p.VehicleType, &p.LicensePlate, &p.PhoneNumber, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.Unavailable("profile store", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("profile store", err)
	}
	return profiles, nil
}

func (s *PostgresStore) stageEvent(ctx context.Context, tx *sql.Tx, eventType domain.DriverEventType, p domain.DriverProfile, at time.Time) error {
	payload, err := json.Marshal(domain.DriverEvent{
		ID:       uuid.NewString(),
		DriverID: p.DriverID,
		Type:     eventType,
		Payload: map[string]any{
			"name":        p.Name,
			"vehicleType": p.VehicleType,
		},
		CreatedAt: at,
	})
	if err != nil {
		return domain.Unavailable("profile store", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO driver_outbox (topic, payload, created_at) VALUES ($1, $2, $3)`,
		s.subject, payload, at); err != nil {
		return domain.Unavailable("profile store", err)
	}
	return nil
}
