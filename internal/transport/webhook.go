// Package transport exposes the router as a Twilio WhatsApp webhook.
package transport

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jarvis/internal/logging"
	"jarvis/internal/router"
	"jarvis/internal/usage"
)

const (
	// ProbeReply answers GET on the webhook path.
	ProbeReply = "Endpoint WhatsApp OK (usa POST desde Twilio)"
	// HealthReply answers GET /.
	HealthReply = "Jarvis WhatsApp OK"

	// maxMedia is the most attachments Twilio sends with one message.
	maxMedia = 10
)

// InboundHandler answers one inbound message. *router.Router implements it.
type InboundHandler interface {
	HandleInbound(ctx context.Context, in router.Inbound) router.Reply
}

// Options configures the webhook.
type Options struct {
	Path   string // default "/whatsapp"
	Logger *zap.Logger
	Budget *usage.BudgetGuard // put on each request context when set
}

// NewHandler returns the HTTP handler serving health, probe and webhook
// routes.
func NewHandler(h InboundHandler, opts Options) http.Handler {
	if opts.Path == "" {
		opts.Path = "/whatsapp"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	w := &webhook{inbound: h, logger: opts.Logger, budget: opts.Budget}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.Write([]byte(HealthReply))
	})
	mux.HandleFunc("GET "+opts.Path, func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.Write([]byte(ProbeReply))
	})
	mux.HandleFunc("POST "+opts.Path, w.serveMessage)
	return accessLog(opts.Logger, mux)
}

type webhook struct {
	inbound InboundHandler
	logger  *zap.Logger
	budget  *usage.BudgetGuard
}

func (w *webhook) serveMessage(rw http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())
	rlog := logging.WithRequestID(logging.CategoryTransport, reqID)

	reply := router.ErrorReply
	if in, err := ParseInbound(r); err != nil {
		w.logger.Warn("invalid webhook form", zap.String("request_id", reqID), zap.Error(err))
		rlog.Error("invalid webhook form: %v", err)
	} else {
		rlog.WithField("from", in.Sender).WithField("media", len(in.Attachments)).Info("inbound message")
		ctx := r.Context()
		if w.budget != nil {
			ctx = usage.NewContext(ctx, w.budget)
		}
		reply = w.inbound.HandleInbound(ctx, in).Text
	}
	logging.Get(logging.CategoryTransport).StructuredLog("info", "reply sent", map[string]interface{}{
		"req":   reqID,
		"runes": len([]rune(reply)),
	})

	if err := WriteTwiML(rw, reply); err != nil {
		w.logger.Error("failed to write TwiML", zap.String("request_id", reqID), zap.Error(err))
	}
}

// ParseInbound reads Twilio's form fields.
func ParseInbound(r *http.Request) (router.Inbound, error) {
	if err := r.ParseForm(); err != nil {
		return router.Inbound{}, fmt.Errorf("parse form: %w", err)
	}
	in := router.Inbound{
		Sender: r.PostFormValue("From"),
		Body:   r.PostFormValue("Body"),
	}
	n, err := strconv.Atoi(r.PostFormValue("NumMedia"))
	if err != nil || n < 0 {
		n = 0
	}
	if n > maxMedia {
		n = maxMedia
	}
	for i := 0; i < n; i++ {
		in.Attachments = append(in.Attachments, router.Attachment{
			ContentType: r.PostFormValue(fmt.Sprintf("MediaContentType%d", i)),
			URL:         r.PostFormValue(fmt.Sprintf("MediaUrl%d", i)),
		})
	}
	return in, nil
}

type twimlResponse struct {
	XMLName  xml.Name       `xml:"Response"`
	Messages []twimlMessage `xml:"Message"`
}

type twimlMessage struct {
	Body string `xml:",chardata"`
}

// WriteTwiML writes a messaging response with one message.
func WriteTwiML(rw http.ResponseWriter, text string) error {
	out, err := xml.Marshal(twimlResponse{Messages: []twimlMessage{{Body: text}}})
	if err != nil {
		return err
	}
	rw.Header().Set("Content-Type", "application/xml")
	rw.WriteHeader(http.StatusOK)
	if _, err := rw.Write([]byte(xml.Header)); err != nil {
		return err
	}
	_, err = rw.Write(out)
	return err
}

type requestIDKey struct{}

// RequestID returns the ID assigned by the access log middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		rw.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		logger.Info("http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
