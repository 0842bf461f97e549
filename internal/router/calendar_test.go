package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jarvis/internal/textnorm"
)

// Wednesday.
var wednesday = time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)

func TestThisWeek(t *testing.T) {
	tests := []struct {
		day  time.Weekday
		want string
	}{
		{time.Monday, "2025-06-02"},
		{time.Wednesday, "2025-06-04"},
		{time.Friday, "2025-06-06"},
		{time.Sunday, "2025-06-08"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ThisWeek(wednesday, tt.day).Format("2006-01-02"), tt.day.String())
	}

	sunday := time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-02", ThisWeek(sunday, time.Monday).Format("2006-01-02"))
}

func TestNext(t *testing.T) {
	assert.Equal(t, "2025-06-11", Next(wednesday, time.Wednesday).Format("2006-01-02"))
	assert.Equal(t, "2025-06-05", Next(wednesday, time.Thursday).Format("2006-01-02"))
	assert.Equal(t, "2025-06-09", Next(wednesday, time.Monday).Format("2006-01-02"))
}

func TestParseCalendar(t *testing.T) {
	tests := []struct {
		in     string
		want   calendarQuery
		wantOK bool
	}{
		{"¿qué fecha es hoy?", calendarQuery{kind: calendarToday}, true},
		{"qué día es hoy", calendarQuery{kind: calendarToday}, true},
		{"what day is it", calendarQuery{kind: calendarToday}, true},
		{"fecha del jueves de esta semana", calendarQuery{kind: calendarThisWeek, weekday: time.Thursday}, true},
		{"this friday", calendarQuery{kind: calendarThisWeek, weekday: time.Friday}, true},
		{"el próximo miércoles", calendarQuery{kind: calendarNext, weekday: time.Wednesday}, true},
		{"el sábado que viene", calendarQuery{kind: calendarNext, weekday: time.Saturday}, true},
		{"next sunday", calendarQuery{kind: calendarNext, weekday: time.Sunday}, true},
		{"lunes", calendarQuery{}, false},
		{"qué hora es", calendarQuery{}, false},
	}
	for _, tt := range tests {
		got, ok := parseCalendar(textnorm.Words(tt.in))
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCalendarReplies(t *testing.T) {
	f := newFixture(t)
	f.places.now = wednesday
	ctx := context.Background()

	assert.Equal(t, "📅 Hoy es miércoles, 2025-06-04.", f.router.Route(ctx, "a", "qué fecha es hoy"))
	assert.Equal(t, "📅 El lunes de esta semana es 2025-06-02.", f.router.Route(ctx, "a", "lunes de esta semana"))
	assert.Equal(t, "📅 El próximo miércoles es 2025-06-11.", f.router.Route(ctx, "a", "próximo miércoles"))
}

func TestCalendarUsesConfiguredLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	f := newFixture(t, func(c *Config) { c.Location = tokyo })
	// 20:00 UTC Wednesday is already Thursday in Tokyo.
	f.places.now = time.Date(2025, 6, 4, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "📅 Hoy es jueves, 2025-06-05.", f.router.Route(context.Background(), "a", "qué día es hoy"))
}
