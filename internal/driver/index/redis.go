// Package index implements the ephemeral location index over Redis: one hash
// per online driver plus a shared geo set for radius queries. Hash presence
// is the authoritative online signal; the geo set only generates candidates.
package index

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/driverhub/internal/driver/domain"
)

const (
	locationKeyPrefix = "driver:location:"
	geoKey            = "driver:geo"

	fieldDriverID  = "driver_id"
	fieldLatitude  = "latitude"
	fieldLongitude = "longitude"
	fieldTimestamp = "timestamp"
	fieldOnline    = "online"
)

// RedisIndex implements domain.LocationIndex using a per-driver hash with a
// TTL and the GEO commands on a single sorted set.
type RedisIndex struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisIndex constructs the index. A non-positive ttl falls back to the
// 24h expiry window.
func NewRedisIndex(client redis.Cmdable, ttl time.Duration) *RedisIndex {
	if ttl <= 0 {
		ttl = domain.LocationTTL
	}
	return &RedisIndex{client: client, ttl: ttl}
}

// Upsert writes the hash entry, refreshes its TTL and (re)inserts the driver
// into the geo set. The hash write goes first so a failure leaves both sides
// untouched; a failed geo insert rolls the hash back best-effort so the pair
// never ends up as "indexed but not online".
func (r *RedisIndex) Upsert(ctx context.Context, loc domain.DriverLocation) error {
	key := locationKeyPrefix + loc.DriverID
	fields := map[string]any{
		fieldDriverID:  loc.DriverID,
		fieldLatitude:  strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
		fieldLongitude: strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
		fieldTimestamp: strconv.FormatInt(loc.Timestamp.UnixMilli(), 10),
		fieldOnline:    "1",
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		upsertTotal.WithLabelValues("error").Inc()
		return domain.Unavailable("location index", err)
	}
	if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
		upsertTotal.WithLabelValues("error").Inc()
		return domain.Unavailable("location index", err)
	}
	err := r.client.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      loc.DriverID,
		Longitude: loc.Longitude,
		Latitude:  loc.Latitude,
	}).Err()
	if err != nil {
		_ = r.client.Del(ctx, key).Err()
		upsertTotal.WithLabelValues("error").Inc()
		return domain.Unavailable("location index", err)
	}
	upsertTotal.WithLabelValues("ok").Inc()
	return nil
}

// Remove deletes the hash entry and the geo member. Removing an absent
// driver is a no-op. The hash goes first: if the delete fails the geo member
// is left alone, so a stale geo member always points at a missing hash, never
// the other way around.
func (r *RedisIndex) Remove(ctx context.Context, driverID string) error {
	if err := r.client.Del(ctx, locationKeyPrefix+driverID).Err(); err != nil {
		return domain.Unavailable("location index", err)
	}
	if err := r.client.ZRem(ctx, geoKey, driverID).Err(); err != nil {
		return domain.Unavailable("location index", err)
	}
	removeTotal.Inc()
	return nil
}

// Get returns the live entry for the driver. Absence is a normal state
// (offline), reported via the bool rather than an error.
func (r *RedisIndex) Get(ctx context.Context, driverID string) (domain.DriverLocation, bool, error) {
	data, err := r.client.HGetAll(ctx, locationKeyPrefix+driverID).Result()
	if err != nil {
		return domain.DriverLocation{}, false, domain.Unavailable("location index", err)
	}
	if len(data) == 0 {
		return domain.DriverLocation{}, false, nil
	}
	loc, err := parseEntry(driverID, data)
	if err != nil {
		return domain.DriverLocation{}, false, err
	}
	return loc, true, nil
}

// SearchRadius returns the ids of drivers whose indexed position lies within
// radiusKm of the center. Callers must re-validate membership against Get.
func (r *RedisIndex) SearchRadius(ctx context.Context, center domain.Coordinates, radiusKm float64) ([]string, error) {
	start := time.Now()
	results, err := r.client.GeoRadius(ctx, geoKey, center.Longitude, center.Latitude, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
	}).Result()
	if err != nil {
		searchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, domain.Unavailable("location index", err)
	}
	searchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	ids := make([]string, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.Name)
	}
	return ids, nil
}

func parseEntry(driverID string, data map[string]string) (domain.DriverLocation, error) {
	lat, err := strconv.ParseFloat(data[fieldLatitude], 64)
	if err != nil {
		return domain.DriverLocation{}, domain.Unavailable("location index", err)
	}
	lon, err := strconv.ParseFloat(data[fieldLongitude], 64)
	if err != nil {
		return domain.DriverLocation{}, domain.Unavailable("location index", err)
	}
	ms, err := strconv.ParseInt(data[fieldTimestamp], 10, 64)
	if err != nil {
		return domain.DriverLocation{}, domain.Unavailable("location index", err)
	}
	return domain.DriverLocation{
		DriverID:  driverID,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.UnixMilli(ms).UTC(),
		Online:    data[fieldOnline] == "1",
	}, nil
}
