// Package transcribe turns voice notes into text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"google.golang.org/genai"

	"jarvis/internal/logging"
	"jarvis/internal/usage"
)

// ErrEmptyTranscript is returned when the backend produced no text.
var ErrEmptyTranscript = errors.New("empty transcript")

// Transcriber converts audio bytes of the given MIME type to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

const instruction = "Transcribe this voice note verbatim in its original language. " +
	"Reply with the transcript only, without quotes or commentary."

// Gemini transcribes audio with a Gemini model.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini transcriber.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Transcribe implements Transcriber.
func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyTranscript
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	timer := logging.StartTimer(logging.CategoryTranscribe, "gemini transcription")
	defer timer.Stop()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(audio, NormalizeMIME(mimeType)),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI transcription failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyTranscript
	}
	logging.Transcribe("Transcribed %d bytes of %s into %d chars", len(audio), mimeType, len(text))
	return text, nil
}

// Metered charges a budget guard for every successful transcription. The
// guard carried by the request context wins over Guard.
type Metered struct {
	Next  Transcriber
	Guard *usage.BudgetGuard
	Cost  float64
}

// Transcribe implements Transcriber.
func (m *Metered) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	text, err := m.Next.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", err
	}
	guard := usage.FromContext(ctx)
	if guard == nil {
		guard = m.Guard
	}
	if guard != nil {
		if err := guard.AddUsage("transcription", m.Cost); err != nil {
			logging.TranscribeWarn("failed to record transcription usage: %v", err)
		}
	}
	return text, nil
}

var audioExtensions = map[string]bool{".ogg": true, ".m4a": true, ".aac": true, ".mp3": true}

// IsAudio reports whether an attachment is a voice note, judged by its
// content type or, failing that, by the URL's file extension.
func IsAudio(contentType, rawURL string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if strings.HasPrefix(ct, "audio") || strings.HasPrefix(ct, "application/ogg") {
		return true
	}
	p := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		p = strings.ToLower(u.Path)
	}
	return audioExtensions[path.Ext(p)]
}

// Extension maps an audio content type to a file extension, defaulting
// to ".ogg" (WhatsApp voice notes are Opus in Ogg).
func Extension(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "aac"):
		return ".aac"
	case strings.Contains(ct, "mp4"), strings.Contains(ct, "m4a"):
		return ".m4a"
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return ".mp3"
	default:
		return ".ogg"
	}
}

// NormalizeMIME strips parameters such as "; codecs=opus" and fills in a
// default for empty types.
func NormalizeMIME(contentType string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "", "application/octet-stream":
		return "audio/ogg"
	case "application/ogg":
		return "audio/ogg"
	}
	return ct
}
