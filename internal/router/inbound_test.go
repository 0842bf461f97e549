package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/convctx"
)

type scriptedTranscriber struct {
	text  string
	err   error
	calls int
}

func (s *scriptedTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	s.calls++
	if string(audio) == "corrupt" {
		return "", errors.New("unsupported codec")
	}
	return s.text, s.err
}

func fetcher(files map[string]string) MediaFetcher {
	return MediaFetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		b, ok := files[url]
		if !ok {
			return nil, errors.New("404")
		}
		return []byte(b), nil
	})
}

func TestHandleInboundTranscribesAudio(t *testing.T) {
	tr := &scriptedTranscriber{text: "  idea comprar   pan "}
	f := newFixture(t, func(c *Config) {
		c.Transcriber = tr
		c.Media = fetcher(map[string]string{"https://media/1": "ogg-bytes"})
	})

	reply := f.router.HandleInbound(context.Background(), Inbound{
		Sender:      "whatsapp:+1",
		Body:        "",
		Attachments: []Attachment{{ContentType: "audio/ogg", URL: "https://media/1"}},
	})

	assert.Equal(t, "idea comprar pan", reply.Transcript)
	assert.Equal(t, "📝 Transcripción: idea comprar pan\n\n✅ Guardé tu idea: “comprar pan”.\n➡️ ¿La refino ahora? Escribe: opina: comprar pan", reply.Text)

	c, ok := f.contexts.Peek("whatsapp:+1")
	require.True(t, ok)
	assert.Equal(t, "comprar pan", c.LastText)
	assert.Equal(t, convctx.OriginAudio, c.LastIntent)
}

func TestHandleInboundFailedTranscriptionKeepsContext(t *testing.T) {
	tr := &scriptedTranscriber{text: ""}
	f := newFixture(t, func(c *Config) {
		c.Transcriber = tr
		c.Media = fetcher(map[string]string{"https://media/empty": "silence", "https://media/bad": "corrupt"})
	})
	ctx := context.Background()

	f.router.Route(ctx, "s", "idea primera")

	reply := f.router.HandleInbound(ctx, Inbound{
		Sender: "s",
		Attachments: []Attachment{
			{ContentType: "audio/ogg", URL: "https://media/missing"},
			{ContentType: "audio/ogg", URL: "https://media/bad"},
			{ContentType: "audio/ogg", URL: "https://media/empty"},
		},
	})
	assert.Equal(t, NoTextReply, reply.Text)
	assert.Empty(t, reply.Transcript)
	assert.Equal(t, 2, tr.calls)

	c := f.contexts.Get("s")
	assert.Equal(t, "primera", c.LastText)
	assert.Equal(t, convctx.OriginText, c.LastIntent)
}

func TestHandleInboundSkipsNonAudioAndFallsBackToBody(t *testing.T) {
	tr := &scriptedTranscriber{text: "no debería usarse"}
	f := newFixture(t, func(c *Config) {
		c.Transcriber = tr
		c.Media = fetcher(nil)
	})

	reply := f.router.HandleInbound(context.Background(), Inbound{
		Sender:      "s",
		Body:        "listar ideas",
		Attachments: []Attachment{{ContentType: "image/jpeg", URL: "https://media/photo.jpg"}},
	})
	assert.Equal(t, NoNotesReply, reply.Text)
	assert.Equal(t, 0, tr.calls)
}

func TestHandleInboundWithoutTranscriber(t *testing.T) {
	f := newFixture(t)
	reply := f.router.HandleInbound(context.Background(), Inbound{
		Sender:      "s",
		Body:        "hola",
		Attachments: []Attachment{{ContentType: "audio/ogg", URL: "https://media/1"}},
	})
	assert.Equal(t, GreetingReply, reply.Text)
}
