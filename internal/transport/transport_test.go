package transport

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jarvis/internal/router"
	"jarvis/internal/usage"
)

type recordingHandler struct {
	got    []router.Inbound
	guards []*usage.BudgetGuard
	reply  string
}

func (h *recordingHandler) HandleInbound(ctx context.Context, in router.Inbound) router.Reply {
	h.got = append(h.got, in)
	h.guards = append(h.guards, usage.FromContext(ctx))
	return router.Reply{Text: h.reply}
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookReturnsTwiML(t *testing.T) {
	inbound := &recordingHandler{reply: "✅ Guardé tu idea: “a & b”."}
	h := NewHandler(inbound, Options{Logger: zap.NewNop()})

	rec := postForm(t, h, url.Values{
		"From":              {"whatsapp:+34600"},
		"Body":              {"idea a & b"},
		"NumMedia":          {"2"},
		"MediaContentType0": {"audio/ogg"},
		"MediaUrl0":         {"https://api.twilio.com/m/0"},
		"MediaContentType1": {"image/jpeg"},
		"MediaUrl1":         {"https://api.twilio.com/m/1"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	want := router.Inbound{
		Sender: "whatsapp:+34600",
		Body:   "idea a & b",
		Attachments: []router.Attachment{
			{ContentType: "audio/ogg", URL: "https://api.twilio.com/m/0"},
			{ContentType: "image/jpeg", URL: "https://api.twilio.com/m/1"},
		},
	}
	require.Len(t, inbound.got, 1)
	if diff := cmp.Diff(want, inbound.got[0]); diff != "" {
		t.Errorf("inbound mismatch (-want +got):\n%s", diff)
	}

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, xml.Header))
	assert.Contains(t, body, "a &amp; b")

	var parsed twimlResponse
	require.NoError(t, xml.Unmarshal([]byte(strings.TrimPrefix(body, xml.Header)), &parsed))
	require.Len(t, parsed.Messages, 1)
	assert.Equal(t, inbound.reply, parsed.Messages[0].Body)
}

func TestWebhookCarriesBudgetGuard(t *testing.T) {
	guard, err := usage.NewBudgetGuard("", 5)
	require.NoError(t, err)

	inbound := &recordingHandler{reply: "ok"}
	postForm(t, NewHandler(inbound, Options{Budget: guard}), url.Values{"From": {"x"}, "Body": {"hola"}})
	require.Len(t, inbound.guards, 1)
	assert.Same(t, guard, inbound.guards[0])

	bare := &recordingHandler{reply: "ok"}
	postForm(t, NewHandler(bare, Options{}), url.Values{"From": {"x"}, "Body": {"hola"}})
	require.Len(t, bare.guards, 1)
	assert.Nil(t, bare.guards[0])
}

func TestWebhookBadNumMedia(t *testing.T) {
	inbound := &recordingHandler{reply: "ok"}
	h := NewHandler(inbound, Options{})

	postForm(t, h, url.Values{"From": {"x"}, "Body": {"hola"}, "NumMedia": {"many"}})
	require.Len(t, inbound.got, 1)
	assert.Empty(t, inbound.got[0].Attachments)
}

func TestProbeAndHealth(t *testing.T) {
	h := NewHandler(&recordingHandler{}, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whatsapp", nil))
	assert.Equal(t, ProbeReply, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, HealthReply, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := NewHandler(&recordingHandler{}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestTwilioMediaFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC1" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/big":
			w.Write([]byte(strings.Repeat("x", 32)))
		default:
			w.Header().Set("Content-Type", "audio/ogg")
			w.Write([]byte("OggS"))
		}
	}))
	defer srv.Close()

	m := NewTwilioMedia("AC1", "secret", time.Second)
	m.AuthHosts = []string{"127.0.0.1"}
	data, err := m.Fetch(context.Background(), srv.URL+"/voice")
	require.NoError(t, err)
	assert.Equal(t, "OggS", string(data))

	m.MaxBytes = 8
	_, err = m.Fetch(context.Background(), srv.URL+"/big")
	assert.True(t, errors.Is(err, ErrMediaTooLarge))

	anon := NewTwilioMedia("", "", time.Second)
	_, err = anon.Fetch(context.Background(), srv.URL+"/voice")
	assert.Error(t, err)
}

func TestTwilioMediaKeepsCredentialsOffOtherHosts(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.Write([]byte("OggS"))
	}))
	defer srv.Close()

	m := NewTwilioMedia("ACsecret", "tokensecret", time.Second)
	data, err := m.Fetch(context.Background(), srv.URL+"/a.ogg")
	require.NoError(t, err)
	assert.Equal(t, "OggS", string(data))
	assert.Equal(t, []string{""}, gotAuth)

	_, err = m.Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestSendsCredentials(t *testing.T) {
	m := NewTwilioMedia("AC1", "secret", time.Second)
	tests := []struct {
		host string
		want bool
	}{
		{"api.twilio.com", true},
		{"API.Twilio.com.", true},
		{"twilio.com", true},
		{"eviltwilio.com", false},
		{"twilio.com.attacker.net", false},
		{"127.0.0.1", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.sendsCredentials(tt.host), tt.host)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, addr, NewHandler(&recordingHandler{}, Options{}), zap.NewNop())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return string(b) == HealthReply
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
