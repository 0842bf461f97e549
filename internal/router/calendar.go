package router

import (
	"context"
	"fmt"
	"time"

	"jarvis/internal/textnorm"
)

type calendarKind int

const (
	calendarToday calendarKind = iota
	calendarThisWeek
	calendarNext
)

type calendarQuery struct {
	kind    calendarKind
	weekday time.Weekday
}

var weekdayWords = map[string]time.Weekday{
	"lunes": time.Monday, "martes": time.Tuesday, "miercoles": time.Wednesday,
	"jueves": time.Thursday, "viernes": time.Friday, "sabado": time.Saturday,
	"domingo": time.Sunday,
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

var weekdayNames = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

// parseCalendar recognizes "today's date", "<weekday> of this week" and
// "next <weekday>" in folded words.
func parseCalendar(words []string) (calendarQuery, bool) {
	wi := -1
	for i, w := range words {
		if _, ok := weekdayWords[w]; ok {
			wi = i
			break
		}
	}
	if wi >= 0 {
		day := weekdayWords[words[wi]]
		if textnorm.HasWord(words, "proximo", "proxima", "next", "siguiente") ||
			hasSequence(words[wi+1:], "que", "viene") {
			return calendarQuery{kind: calendarNext, weekday: day}, true
		}
		if hasSequence(words, "esta", "semana") || hasSequence(words, "this", "week") ||
			(wi > 0 && words[wi-1] == "this") {
			return calendarQuery{kind: calendarThisWeek, weekday: day}, true
		}
	}

	if textnorm.HasWord(words, "fecha", "date") && textnorm.HasWord(words, "hoy", "today", "es", "is", "actual") {
		return calendarQuery{kind: calendarToday}, true
	}
	if textnorm.HasWord(words, "dia", "day") && textnorm.HasWord(words, "hoy", "today") {
		return calendarQuery{kind: calendarToday}, true
	}
	if hasSequence(words, "what", "day", "is", "it") {
		return calendarQuery{kind: calendarToday}, true
	}
	return calendarQuery{}, false
}

func hasSequence(words []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(words); i++ {
		match := true
		for j, s := range seq {
			if words[i+j] != s {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func matchCalendar(m *Message) (string, bool) {
	if _, ok := parseCalendar(m.Words); !ok {
		return "", false
	}
	return m.Text, true
}

// ThisWeek returns the given weekday inside the Monday-start week that
// contains today. The result is in the past when that weekday has already
// gone by.
func ThisWeek(today time.Time, day time.Weekday) time.Time {
	today = midnight(today)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -sinceMonday)
	offset := (int(day) + 6) % 7
	return monday.AddDate(0, 0, offset)
}

// Next returns the first date strictly after today that falls on day.
func Next(today time.Time, day time.Weekday) time.Time {
	today = midnight(today)
	delta := (int(day) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r *Router) handleCalendar(_ context.Context, m *Message) (string, error) {
	q, ok := parseCalendar(m.Words)
	if !ok {
		return "", fmt.Errorf("calendar handler called for %q", m.Text)
	}
	today := r.now().In(r.loc)
	switch q.kind {
	case calendarThisWeek:
		d := ThisWeek(today, q.weekday)
		return fmt.Sprintf("📅 El %s de esta semana es %s.", weekdayNames[q.weekday], d.Format("2006-01-02")), nil
	case calendarNext:
		d := Next(today, q.weekday)
		return fmt.Sprintf("📅 El próximo %s es %s.", weekdayNames[q.weekday], d.Format("2006-01-02")), nil
	default:
		return fmt.Sprintf("📅 Hoy es %s, %s.", weekdayNames[today.Weekday()], today.Format("2006-01-02")), nil
	}
}
