package router

import (
	"context"
	"errors"

	"jarvis/internal/convctx"
	"jarvis/internal/logging"
	"jarvis/internal/textnorm"
	"jarvis/internal/transcribe"
)

// Attachment is one media item of an inbound message.
type Attachment struct {
	ContentType string
	URL         string
}

// Inbound is a message as delivered by the transport.
type Inbound struct {
	Sender      string
	Body        string
	Attachments []Attachment
}

// Reply is the router's answer to an Inbound message.
type Reply struct {
	Text string
	// Transcript is set when the reply was produced from a voice note.
	Transcript string
}

// MediaFetcher downloads attachment bytes.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MediaFetcherFunc adapts a function to MediaFetcher.
type MediaFetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f MediaFetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HandleInbound answers a transport message. The first audio attachment
// that transcribes to non-empty text is routed with origin AUDIO; when
// every attempt fails the text body is routed instead and the context is
// not touched by the failed attempts.
func (r *Router) HandleInbound(ctx context.Context, in Inbound) (reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.RoutingError("panic handling inbound from %s: %v", in.Sender, rec)
			reply = Reply{Text: ErrorReply}
		}
	}()

	for i, att := range in.Attachments {
		if att.URL == "" || !transcribe.IsAudio(att.ContentType, att.URL) {
			continue
		}
		text, err := r.transcribeAttachment(ctx, att)
		if err != nil {
			logging.TranscribeWarn("attachment %d from %s not transcribed: %v", i, in.Sender, err)
			continue
		}
		answer := r.routeSafe(ctx, in.Sender, text, convctx.OriginAudio)
		return Reply{
			Text:       "📝 Transcripción: " + text + "\n\n" + answer,
			Transcript: text,
		}
	}
	return Reply{Text: r.routeSafe(ctx, in.Sender, in.Body, convctx.OriginText)}
}

func (r *Router) routeSafe(ctx context.Context, sender, text string, origin convctx.Origin) (reply string) {
	defer r.recoverInto(&reply, sender)
	return r.route(ctx, sender, text, origin)
}

var errNoTranscriber = errors.New("transcription not configured")

func (r *Router) transcribeAttachment(ctx context.Context, att Attachment) (string, error) {
	if r.transcriber == nil || r.media == nil {
		return "", errNoTranscriber
	}
	audio, err := r.media.Fetch(ctx, att.URL)
	if err != nil {
		return "", err
	}
	text, err := r.transcriber.Transcribe(ctx, audio, att.ContentType)
	if err != nil {
		return "", err
	}
	text = textnorm.Clean(text)
	if text == "" {
		return "", transcribe.ErrEmptyTranscript
	}
	return text, nil
}
