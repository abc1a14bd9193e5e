package geotz

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

var zoneCache sync.Map // name -> *time.Location

// LoadZone resolves an IANA identifier against the runtime zone database.
// The empty name and "Local" are rejected instead of mapping to UTC or the host zone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("geotz: %q is not an IANA zone", name)
	}
	if loc, ok := zoneCache.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("geotz: load zone: %w", err)
	}
	zoneCache.Store(name, loc)
	return loc, nil
}

// WallClock returns the wall clock reading of t in loc, labelled as UTC.
func WallClock(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// ToUTC interprets the wall clock fields of local (its own zone ignored) in loc.
func ToUTC(local time.Time, loc *time.Location) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc).UTC()
}
