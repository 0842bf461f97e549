package router

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"jarvis/internal/logging"
	"jarvis/internal/notes"
	"jarvis/internal/places"
	"jarvis/internal/textnorm"
)

// handleKnowledge returns the answer the knowledge base matched.
func (r *Router) handleKnowledge(_ context.Context, m *Message) (string, error) {
	return m.Payload, nil
}

func (r *Router) handleTime(ctx context.Context, m *Message) (string, error) {
	if r.places == nil {
		return TimeUnavailable, nil
	}
	p, reply, ok := r.resolvePlace(ctx, m.Text, NoHomeTime, TimeUnavailable)
	if !ok {
		return reply, nil
	}
	now, ok := r.places.LocalTime(p)
	if !ok {
		return fmt.Sprintf("⏰ Hora (UTC) en %s: %s", p.Label(), now.Format(notes.TimestampLayout)), nil
	}
	return fmt.Sprintf("⏰ Hora local en %s: %s", p.Label(), now.Format(notes.TimestampLayout)), nil
}

func (r *Router) handleWeather(ctx context.Context, m *Message) (string, error) {
	if r.places == nil {
		return WeatherUnavailable, nil
	}
	p, reply, ok := r.resolvePlace(ctx, m.Text, NoHomeWeather, WeatherUnavailable)
	if !ok {
		return reply, nil
	}
	w, err := r.places.CurrentWeather(ctx, p)
	if err != nil {
		logging.Get(logging.CategoryRouting).Warn("weather for %s failed: %v", p.Label(), err)
		return WeatherUnavailable, nil
	}
	return fmt.Sprintf("🌦️ Clima en %s: %s. Temp %s°C (sensación %s°C), humedad %s%%, viento %s km/h.",
		p.Label(), places.Describe(w.Code),
		number(w.Temperature), number(w.ApparentTemperature),
		number(w.Humidity), number(w.WindSpeed)), nil
}

// resolvePlace maps resolver errors to user replies. ok is false when the
// reply should be returned as is.
func (r *Router) resolvePlace(ctx context.Context, text, noHome, unavailable string) (places.Place, string, bool) {
	name := places.ExtractPlace(text)
	p, err := r.places.Resolve(ctx, name)
	switch {
	case err == nil:
		return p, "", true
	case errors.Is(err, places.ErrNoHome):
		return places.Place{}, noHome, false
	case errors.Is(err, places.ErrUnknownPlace):
		return places.Place{}, fmt.Sprintf("No encontré el lugar “%s”.", name), false
	default:
		logging.Get(logging.CategoryRouting).Warn("resolving %q failed: %v", name, err)
		return places.Place{}, unavailable, false
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *Router) handleImages(ctx context.Context, m *Message) (string, error) {
	if m.Payload == "" {
		return EmptyImageTopic, nil
	}
	if r.answers == nil {
		return fmt.Sprintf("No encontré imágenes para %s.", m.Payload), nil
	}
	return r.answers.Images(ctx, m.Payload), nil
}

func (r *Router) handleQuestion(ctx context.Context, m *Message) (string, error) {
	if r.answers == nil {
		return fallbackReply(m.Text), nil
	}
	return r.answers.Answer(ctx, m.Payload), nil
}

func (r *Router) handleIdea(ctx context.Context, m *Message) (string, error) {
	if m.Payload == "" {
		return EmptyIdeaReply, nil
	}
	n, err := r.save(ctx, m.Payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Guardé tu idea: “%s”.\n➡️ ¿La refino ahora? Escribe: opina: %s", n.Text, n.Text), nil
}

func (r *Router) handleOpina(_ context.Context, m *Message) (string, error) {
	if m.Payload == "" {
		return EmptyOpinaReply, nil
	}
	return "🧠 " + Improve(m.Payload), nil
}

func (r *Router) handleImprove(_ context.Context, m *Message) (string, error) {
	c := r.contexts.Get(m.Sender)
	if !c.HasText() {
		return NothingToImprove, nil
	}
	return "🧠 " + Improve(c.LastText), nil
}

func (r *Router) handleSaveLast(ctx context.Context, m *Message) (string, error) {
	c := r.contexts.Get(m.Sender)
	if !c.HasText() {
		return NothingToSave, nil
	}
	n, err := r.save(ctx, c.LastText)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Guardé tu idea: “%s”.", n.Text), nil
}

func (r *Router) save(ctx context.Context, text string) (notes.Note, error) {
	n, err := r.notes.Save(ctx, notes.Note{
		Text:     text,
		Category: notes.DefaultCategory,
		Priority: notes.DefaultPriority,
	})
	if err != nil {
		return notes.Note{}, fmt.Errorf("save note: %w", err)
	}
	return n, nil
}

func (r *Router) handleList(ctx context.Context, _ *Message) (string, error) {
	ns, err := r.notes.List(ctx, r.listLimit)
	if err != nil {
		return "", fmt.Errorf("list notes: %w", err)
	}
	if len(ns) == 0 {
		return NoNotesReply, nil
	}
	return "🗂️ Últimas ideas:\n" + notes.FormatList(ns), nil
}

func (r *Router) handleSearchNotes(ctx context.Context, m *Message) (string, error) {
	if m.Payload == "" {
		return EmptySearchReply, nil
	}
	ns, err := r.notes.Search(ctx, m.Payload)
	if err != nil {
		return "", fmt.Errorf("search notes: %w", err)
	}
	if len(ns) == 0 {
		return fmt.Sprintf("No encontré ideas con “%s”.", m.Payload), nil
	}
	if len(ns) > r.listLimit {
		ns = ns[:r.listLimit]
	}
	return fmt.Sprintf("🔍 Ideas con “%s”:\n%s", m.Payload, notes.FormatList(ns)), nil
}

func (r *Router) handleDeleteNote(ctx context.Context, m *Message) (string, error) {
	pos, _ := strconv.Atoi(m.Payload)
	n, err := r.notes.Delete(ctx, pos)
	if errors.Is(err, notes.ErrNotFound) {
		return fmt.Sprintf("No hay una idea número %d. Escribe 'listar ideas' para verlas.", pos), nil
	}
	if err != nil {
		return "", fmt.Errorf("delete note: %w", err)
	}
	return fmt.Sprintf("🗑️ Borré la idea: “%s”.", n.Text), nil
}

func handleFallback(_ context.Context, m *Message) (string, error) {
	if m.Text == "" {
		return NoTextReply, nil
	}
	return fallbackReply(m.Text), nil
}

func fallbackReply(text string) string {
	return fmt.Sprintf("🎧 Entendí esto: “%s”.\n"+
		"• Guardarla como idea: `idea %s`\n"+
		"• Perfeccionarla: `opina: %s`\n"+
		"• Ver tus ideas: `listar ideas`", textnorm.Preview(text), text, text)
}

// Improve returns the quick heuristic refinement used by "opina:".
func Improve(text string) string {
	base := textnorm.Clean(text)
	if len([]rune(base)) < 10 {
		return shortImprove
	}
	return base + "\n\n" + nextStep
}
