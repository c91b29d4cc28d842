// Package redisgeo implements the driver location index on Redis GEO
// sets, for deployments where several dispatch nodes must share one view
// of the fleet.
package redisgeo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/geo"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type Index struct {
	client    *redis.Client
	geoKey    string
	freshness time.Duration
	now       func() time.Time
}

func New(client *redis.Client, geoKey string, freshness time.Duration) *Index {
	return &Index{client: client, geoKey: geoKey, freshness: freshness, now: time.Now}
}

func (i *Index) metaKey(driverID uuid.UUID) string {
	return i.geoKey + ":driver:" + driverID.String()
}

func (i *Index) Upsert(ctx context.Context, driver models.Driver, loc models.DriverLocation) error {
	pipe := i.client.TxPipeline()
	pipe.GeoAdd(ctx, i.geoKey, &redis.GeoLocation{
		Name:      driver.ID.String(),
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	})
	pipe.HSet(ctx, i.metaKey(driver.ID), map[string]any{
		"name":            driver.Name,
		"service_class":   string(driver.ServiceClass),
		"rating":          driver.Rating,
		"available":       loc.Available,
		"latitude":        loc.Latitude,
		"longitude":       loc.Longitude,
		"heading_degrees": loc.HeadingDegrees,
		"speed_kmh":       loc.SpeedKmh,
		"reported_at":     loc.ReportedAt.UTC().Format(time.RFC3339Nano),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisgeo: Upsert: %w", err)
	}
	return nil
}

func (i *Index) SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error {
	exists, err := i.client.Exists(ctx, i.metaKey(driverID)).Result()
	if err != nil {
		return fmt.Errorf("redisgeo: SetAvailability: %w", err)
	}
	if exists == 0 {
		return types.ErrDriverNotFound
	}
	if err := i.client.HSet(ctx, i.metaKey(driverID), "available", available).Err(); err != nil {
		return fmt.Errorf("redisgeo: SetAvailability: %w", err)
	}
	return nil
}

func (i *Index) Remove(ctx context.Context, driverID uuid.UUID) error {
	pipe := i.client.TxPipeline()
	pipe.ZRem(ctx, i.geoKey, driverID.String())
	pipe.Del(ctx, i.metaKey(driverID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisgeo: Remove: %w", err)
	}
	return nil
}

func (i *Index) Nearby(ctx context.Context, origin models.Location, q geo.Query) ([]models.Candidate, error) {
	found, err := i.client.GeoSearchLocation(ctx, i.geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Longitude,
			Latitude:   origin.Latitude,
			Radius:     q.RadiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisgeo: Nearby: %w", err)
	}

	cutoff := i.now().Add(-i.freshness)
	var out []models.Candidate
	for _, hit := range found {
		driverID, err := uuid.Parse(hit.Name)
		if err != nil {
			continue
		}
		driver, loc, err := i.meta(ctx, driverID)
		if err != nil {
			continue
		}
		if !loc.Available || driver.ServiceClass != q.Class || loc.ReportedAt.Before(cutoff) {
			continue
		}
		out = append(out, models.Candidate{
			Driver:     driver,
			Location:   loc,
			DistanceKm: hit.Dist,
			EtaMinutes: geo.EtaMinutes(hit.Dist, q.Class),
		})
	}

	// GEOSEARCH sorts by distance; re-sort for the rating tie-break.
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].DistanceKm != out[b].DistanceKm {
			return out[a].DistanceKm < out[b].DistanceKm
		}
		return out[a].Driver.Rating > out[b].Driver.Rating
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (i *Index) Location(ctx context.Context, driverID uuid.UUID) (models.DriverLocation, error) {
	_, loc, err := i.meta(ctx, driverID)
	if err != nil {
		return models.DriverLocation{}, err
	}
	if i.now().Sub(loc.ReportedAt) > i.freshness {
		return loc, types.ErrStaleLocation
	}
	return loc, nil
}

func (i *Index) meta(ctx context.Context, driverID uuid.UUID) (models.Driver, models.DriverLocation, error) {
	fields, err := i.client.HGetAll(ctx, i.metaKey(driverID)).Result()
	if err != nil {
		return models.Driver{}, models.DriverLocation{}, fmt.Errorf("redisgeo: meta: %w", err)
	}
	if len(fields) == 0 {
		return models.Driver{}, models.DriverLocation{}, types.ErrDriverNotFound
	}

	driver := models.Driver{
		ID:           driverID,
		Name:         fields["name"],
		ServiceClass: types.ServiceClass(fields["service_class"]),
	}
	driver.Rating, _ = strconv.ParseFloat(fields["rating"], 64)

	loc := models.DriverLocation{DriverID: driverID}
	loc.Latitude, _ = strconv.ParseFloat(fields["latitude"], 64)
	loc.Longitude, _ = strconv.ParseFloat(fields["longitude"], 64)
	loc.HeadingDegrees, _ = strconv.ParseFloat(fields["heading_degrees"], 64)
	loc.SpeedKmh, _ = strconv.ParseFloat(fields["speed_kmh"], 64)
	loc.Available, _ = strconv.ParseBool(fields["available"])
	loc.ReportedAt, _ = time.Parse(time.RFC3339Nano, fields["reported_at"])
	return driver, loc, nil
}
