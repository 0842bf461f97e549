// Package places resolves free-text place names to coordinates and time
// zones, falls back to a configured home place, and reads current weather.
package places

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"jarvis/internal/logging"
	"jarvis/internal/textnorm"
)

var (
	// ErrNoHome is returned when "my area" is requested but no home place
	// is configured.
	ErrNoHome = errors.New("home place not configured")
	// ErrUnknownPlace is returned when geocoding finds nothing.
	ErrUnknownPlace = errors.New("place not found")
)

// DefaultHomeName labels the home place when no city name is configured.
const DefaultHomeName = "tu zona"

// Place is a geocoded location.
type Place struct {
	Name        string
	CountryCode string
	Latitude    float64
	Longitude   float64
	Timezone    string
}

// Label is the user-facing "Name, CC" form.
func (p Place) Label() string {
	return strings.Trim(strings.TrimSpace(p.Name+", "+p.CountryCode), ", ")
}

// Weather is a current-conditions reading.
type Weather struct {
	Temperature         float64
	ApparentTemperature float64
	Humidity            float64
	WindSpeed           float64
	Code                int
}

// Geocoder resolves a place name. A nil Place with nil error means absent.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*Place, error)
}

// WeatherProvider reads current weather for a place.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, p Place) (*Weather, error)
}

// Home describes the configured "my area" place. Coordinates are optional;
// without them the city name is geocoded.
type Home struct {
	City      string
	Latitude  *float64
	Longitude *float64
	Timezone  string
}

// Resolver combines a geocoder, a weather provider and the home place.
type Resolver struct {
	geo     Geocoder
	weather WeatherProvider
	home    Home
	now     func() time.Time
}

// NewResolver creates a Resolver. weather may be nil when only time
// lookups are needed.
func NewResolver(geo Geocoder, weather WeatherProvider, home Home) *Resolver {
	return &Resolver{geo: geo, weather: weather, home: home, now: time.Now}
}

// SetClock replaces time.Now, for tests.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve returns the named place, or the home place when name is empty
// or refers to the user's own area.
func (r *Resolver) Resolve(ctx context.Context, name string) (Place, error) {
	name = textnorm.Clean(name)
	if name == "" || IsHomeReference(name) {
		return r.Home(ctx)
	}
	if r.geo == nil {
		return Place{}, ErrUnknownPlace
	}
	p, err := r.geo.Geocode(ctx, name)
	if err != nil {
		logging.PlacesWarn("geocode %q failed: %v", name, err)
		return Place{}, fmt.Errorf("geocode %q: %w", name, err)
	}
	if p == nil {
		return Place{}, ErrUnknownPlace
	}
	if p.Name == "" {
		p.Name = name
	}
	return *p, nil
}

// Home returns the configured home place.
func (r *Resolver) Home(ctx context.Context) (Place, error) {
	name := textnorm.Clean(r.home.City)
	if r.home.Latitude != nil && r.home.Longitude != nil {
		if name == "" {
			name = DefaultHomeName
		}
		return Place{
			Name:      name,
			Latitude:  *r.home.Latitude,
			Longitude: *r.home.Longitude,
			Timezone:  r.home.Timezone,
		}, nil
	}
	if name == "" || r.geo == nil {
		return Place{}, ErrNoHome
	}
	p, err := r.geo.Geocode(ctx, name)
	if err != nil {
		return Place{}, fmt.Errorf("geocode home %q: %w", name, err)
	}
	if p == nil {
		return Place{}, ErrNoHome
	}
	if r.home.Timezone != "" {
		p.Timezone = r.home.Timezone
	}
	return *p, nil
}

// LocalTime returns the current time at p. When p's time zone cannot be
// loaded it returns UTC and ok=false.
func (r *Resolver) LocalTime(p Place) (t time.Time, ok bool) {
	now := r.now()
	if p.Timezone == "" {
		return now.UTC(), false
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		logging.PlacesWarn("unknown time zone %q for %s: %v", p.Timezone, p.Label(), err)
		return now.UTC(), false
	}
	return now.In(loc), true
}

// CurrentWeather reads the weather at p.
func (r *Resolver) CurrentWeather(ctx context.Context, p Place) (*Weather, error) {
	if r.weather == nil {
		return nil, errors.New("no weather provider configured")
	}
	w, err := r.weather.CurrentWeather(ctx, p)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("empty weather reading")
	}
	return w, nil
}

var homeReferences = map[string]bool{
	"mi zona": true, "mi ciudad": true, "aqui": true, "casa": true,
	"mi casa": true, "mi area": true, "my area": true, "here": true,
}

// IsHomeReference reports whether name means the user's own area.
func IsHomeReference(name string) bool {
	return homeReferences[textnorm.Fold(name)]
}

var placePattern = regexp.MustCompile(`(?i)(?:^|\s)(?:en|de|para|por|sobre|in|for)\s+([\p{L}\p{M} .,'-]{2,})$`)

// leadingNoise are words dropped from the front of a captured place, so
// "de hoy en Madrid" yields "Madrid".
var leadingNoise = map[string]bool{
	"hoy": true, "manana": true, "ahora": true, "today": true, "now": true, "tomorrow": true,
	"en": true, "de": true, "para": true, "por": true, "sobre": true, "in": true, "for": true,
}

// ExtractPlace finds a trailing "en Madrid" / "de Buenos Aires" phrase and
// returns the place name with its original casing, or "" if none.
func ExtractPlace(text string) string {
	t := strings.TrimRight(textnorm.Clean(text), "?!¿¡. ")
	m := placePattern.FindStringSubmatch(t)
	if m == nil {
		return ""
	}
	words := strings.Fields(m[1])
	for len(words) > 0 && leadingNoise[textnorm.Fold(strings.Trim(words[0], ".,'-"))] {
		words = words[1:]
	}
	return strings.Trim(strings.Join(words, " "), " .,'-")
}

var wmoDescriptions = map[int]string{
	0: "Despejado", 1: "Mayormente despejado", 2: "Parcialmente nublado", 3: "Nublado",
	45: "Niebla", 48: "Niebla con escarcha",
	51: "Llovizna ligera", 53: "Llovizna", 55: "Llovizna intensa",
	61: "Lluvia ligera", 63: "Lluvia", 65: "Lluvia fuerte",
	66: "Lluvia helada ligera", 67: "Lluvia helada fuerte",
	71: "Nieve ligera", 73: "Nieve", 75: "Nieve fuerte",
	77: "Granos de nieve", 80: "Chubascos ligeros", 81: "Chubascos", 82: "Chubascos fuertes",
	85: "Chubascos de nieve ligeros", 86: "Chubascos de nieve fuertes",
	95: "Tormenta", 96: "Tormenta con granizo", 99: "Tormenta fuerte con granizo",
}

// Describe maps a WMO weather code to a short Spanish description.
func Describe(code int) string {
	if d, ok := wmoDescriptions[code]; ok {
		return d
	}
	return fmt.Sprintf("Código meteo %d", code)
}
