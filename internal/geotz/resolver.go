// Package geotz maps coordinates to IANA time zones.
package geotz

import (
	"fmt"

	"github.com/ringsaturn/tzf"

	"github.com/Dan9191/transaction-manager/internal/models"
)

// Resolver maps a location to an IANA zone identifier.
type Resolver interface {
	TimeZone(loc models.Location) (string, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(loc models.Location) (string, error)

func (f ResolverFunc) TimeZone(loc models.Location) (string, error) { return f(loc) }

// BoundaryResolver answers lookups from the time zone boundary dataset embedded in tzf.
type BoundaryResolver struct {
	finder tzf.F
}

// NewBoundaryResolver loads the embedded dataset. Loading is slow; build one per process.
func NewBoundaryResolver() (*BoundaryResolver, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("geotz: load boundaries: %w", err)
	}
	return &BoundaryResolver{finder: finder}, nil
}

// TimeZone returns the zone containing loc. Ocean points resolve to Etc/GMT offsets.
func (r *BoundaryResolver) TimeZone(loc models.Location) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	name := r.finder.GetTimezoneName(loc.Longitude, loc.Latitude)
	if name == "" {
		return "", fmt.Errorf("geotz: no time zone for %s", loc)
	}
	return name, nil
}
