package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidLocation is returned for malformed or out-of-range coordinates.
var ErrInvalidLocation = errors.New("invalid location")

var locationPattern = regexp.MustCompile(
	`^\s*([+-]?(?:\d+\.?\d*|\.\d+))\s*(?:,\s*|\s+)([+-]?(?:\d+\.?\d*|\.\d+))\s*$`)

// Location is a latitude/longitude pair in decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ParseLocation parses "<lat>, <lon>" (comma or whitespace separated).
func ParseLocation(text string) (Location, error) {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return Location{}, fmt.Errorf("%w: %q is not a \"<lat>, <lon>\" pair", ErrInvalidLocation, text)
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: latitude %q: %v", ErrInvalidLocation, m[1], err)
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: longitude %q: %v", ErrInvalidLocation, m[2], err)
	}
	loc := Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidLocation, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidLocation, l.Longitude)
	}
	return nil
}

// String returns the canonical "<lat>, <lon>" form.
func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}
