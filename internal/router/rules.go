package router

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"jarvis/internal/textnorm"
)

// Intent names a rule.
type Intent string

const (
	IntentKnowledge   Intent = "knowledge"
	IntentCalendar    Intent = "calendar"
	IntentTime        Intent = "time"
	IntentWeather     Intent = "weather"
	IntentImages      Intent = "images"
	IntentQuestion    Intent = "question"
	IntentIdea        Intent = "idea"
	IntentOpina       Intent = "opina"
	IntentImprove     Intent = "improve"
	IntentSaveLast    Intent = "save_last"
	IntentListNotes   Intent = "list_notes"
	IntentSearchNotes Intent = "search_notes"
	IntentDeleteNote  Intent = "delete_note"
	IntentHelp        Intent = "help"
	IntentGreeting    Intent = "greeting"
	IntentFallback    Intent = "fallback"
)

// ContextPolicy says what a rule writes to the sender's context before its
// handler runs.
type ContextPolicy int

const (
	// RememberInput stores the whole understood text.
	RememberInput ContextPolicy = iota
	// RememberPayload stores only the command argument, if any.
	RememberPayload
	// KeepContext leaves the context untouched.
	KeepContext
)

func (p ContextPolicy) String() string {
	switch p {
	case RememberPayload:
		return "remember_payload"
	case KeepContext:
		return "keep"
	default:
		return "remember_input"
	}
}

// Rule is one entry of the dispatch table. Match returns the payload the
// handler will find in Message.Payload.
type Rule struct {
	Intent  Intent
	Match   func(m *Message) (payload string, ok bool)
	Handle  func(ctx context.Context, m *Message) (string, error)
	Context ContextPolicy
}

func (r *Router) buildRules() []Rule {
	return []Rule{
		{Intent: IntentKnowledge, Match: r.matchKnowledge, Handle: r.handleKnowledge, Context: RememberInput},
		{Intent: IntentCalendar, Match: matchCalendar, Handle: r.handleCalendar, Context: RememberInput},
		{Intent: IntentTime, Match: matchKeywords(timeWords), Handle: r.handleTime, Context: RememberInput},
		{Intent: IntentWeather, Match: matchKeywords(weatherWords), Handle: r.handleWeather, Context: RememberInput},
		{Intent: IntentImages, Match: matchImages, Handle: r.handleImages, Context: RememberInput},
		{Intent: IntentQuestion, Match: matchQuestion, Handle: r.handleQuestion, Context: RememberInput},
		{Intent: IntentIdea, Match: matchIdea, Handle: r.handleIdea, Context: RememberPayload},
		{Intent: IntentOpina, Match: matchOpina, Handle: r.handleOpina, Context: RememberPayload},
		{Intent: IntentImprove, Match: matchExact("perfecciona", "perfeccionala", "mejora", "mejorala"), Handle: r.handleImprove, Context: KeepContext},
		{Intent: IntentSaveLast, Match: matchExact("guardala", "guardalo", "guardar", "guarda eso"), Handle: r.handleSaveLast, Context: KeepContext},
		{Intent: IntentListNotes, Match: matchExact("listar ideas", "listar", "resumen", "mis ideas"), Handle: r.handleList, Context: KeepContext},
		{Intent: IntentSearchNotes, Match: matchSearchNotes, Handle: r.handleSearchNotes, Context: KeepContext},
		{Intent: IntentDeleteNote, Match: matchDeleteNote, Handle: r.handleDeleteNote, Context: KeepContext},
		{Intent: IntentHelp, Match: matchExact("ayuda", "help", "menu"), Handle: handleStatic(HelpReply), Context: KeepContext},
		{Intent: IntentGreeting, Match: matchExact(greetings...), Handle: handleStatic(GreetingReply), Context: KeepContext},
		{Intent: IntentFallback, Match: matchAll, Handle: handleFallback, Context: RememberInput},
	}
}

var (
	timeWords    = []string{"hora", "horas", "time"}
	weatherWords = []string{"clima", "tiempo", "temperatura", "pronostico", "weather"}
	imageWords   = []string{"imagen", "imagenes", "foto", "fotos", "picture", "pictures", "image", "images"}

	// Words dropped when deriving an image topic.
	imageFillers = map[string]bool{
		"de": true, "del": true, "la": true, "el": true, "los": true, "las": true,
		"un": true, "una": true, "unos": true, "unas": true, "en": true, "sobre": true,
		"con": true, "busca": true, "buscar": true, "buscame": true, "muestra": true,
		"muestrame": true, "mostrar": true, "ensename": true, "dame": true, "quiero": true,
		"ver": true, "me": true, "mandame": true, "envia": true, "enviame": true,
		"of": true, "a": true, "an": true, "the": true, "show": true, "find": true,
		"search": true, "for": true, "some": true,
	}

	interrogatives = map[string]bool{
		"que": true, "quien": true, "quienes": true, "como": true, "cuando": true,
		"donde": true, "cual": true, "cuales": true, "cuanto": true, "cuanta": true,
		"cuantos": true, "cuantas": true, "porque": true,
		"what": true, "who": true, "how": true, "when": true, "where": true,
		"why": true, "which": true,
	}

	greetings = []string{
		"hola", "hola jarvis", "buenas", "hey", "ola", "hello", "hi",
		"buenos dias", "buenas tardes", "buenas noches",
	}

	searchNotesPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^busca(?:r)?\s+(?:en\s+)?(?:mis\s+)?ideas?\s+(?:sobre\s+|de\s+|con\s+)?(.*)$`),
		regexp.MustCompile(`^busca(?:r)?\s+(.+?)\s+en\s+(?:mis\s+)?ideas$`),
	}
	deleteNotePattern = regexp.MustCompile(`^(?:borra|borrar|elimina|eliminar)\s+(?:la\s+)?idea\s+(\d+)$`)
)

func (r *Router) matchKnowledge(m *Message) (string, bool) {
	if r.knowledge == nil || m.Text == "" {
		return "", false
	}
	return r.knowledge.Lookup(m.Text)
}

func matchKeywords(words []string) func(m *Message) (string, bool) {
	return func(m *Message) (string, bool) {
		if textnorm.HasWord(m.Words, words...) {
			return m.Text, true
		}
		return "", false
	}
}

// matchExact matches when the whole message, ignoring accents, case and
// punctuation, is one of phrases.
func matchExact(phrases ...string) func(m *Message) (string, bool) {
	set := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		set[p] = true
	}
	return func(m *Message) (string, bool) {
		return "", set[strings.Join(m.Words, " ")]
	}
}

func matchAll(m *Message) (string, bool) {
	return m.Text, true
}

func matchImages(m *Message) (string, bool) {
	if !textnorm.HasWord(m.Words, imageWords...) {
		return "", false
	}
	return imageTopic(m.Text), true
}

// imageTopic removes the image keyword and connector words while keeping
// the remaining words in their original form.
func imageTopic(text string) string {
	var kept []string
	for _, tok := range strings.Fields(text) {
		bare := strings.Trim(tok, "¿?¡!.,;:\"'“”")
		if bare == "" {
			continue
		}
		folded := textnorm.Fold(bare)
		if imageFillers[folded] || textnorm.HasWord([]string{folded}, imageWords...) {
			continue
		}
		kept = append(kept, bare)
	}
	return strings.Join(kept, " ")
}

func matchQuestion(m *Message) (string, bool) {
	if m.Text == "" {
		return "", false
	}
	if strings.ContainsAny(m.Text, "?¿") {
		return m.Text, true
	}
	if len(m.Words) == 0 {
		return "", false
	}
	first := m.Words[0]
	if interrogatives[first] {
		return m.Text, true
	}
	if first == "por" && len(m.Words) > 1 && m.Words[1] == "que" {
		return m.Text, true
	}
	return "", false
}

// matchIdea accepts "idea <texto>" and a bare "idea".
func matchIdea(m *Message) (string, bool) {
	if m.Lower == "idea" {
		return "", true
	}
	if strings.HasPrefix(m.Lower, "idea ") {
		return textnorm.Clean(m.Text[len("idea "):]), true
	}
	return "", false
}

func matchOpina(m *Message) (string, bool) {
	if !strings.HasPrefix(m.Lower, "opina:") {
		return "", false
	}
	return textnorm.Clean(m.Text[len("opina:"):]), true
}

func matchSearchNotes(m *Message) (string, bool) {
	for _, re := range searchNotesPatterns {
		if sm := re.FindStringSubmatch(m.Lower); sm != nil {
			return strings.Trim(sm[1], " ?!.,"), true
		}
	}
	return "", false
}

func matchDeleteNote(m *Message) (string, bool) {
	sm := deleteNotePattern.FindStringSubmatch(m.Lower)
	if sm == nil {
		return "", false
	}
	if _, err := strconv.Atoi(sm[1]); err != nil {
		return "", false
	}
	return sm[1], true
}

func handleStatic(reply string) func(context.Context, *Message) (string, error) {
	return func(context.Context, *Message) (string, error) {
		return reply, nil
	}
}
