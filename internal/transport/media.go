package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jarvis/internal/logging"
)

// ErrMediaTooLarge is returned when an attachment exceeds MaxBytes.
var ErrMediaTooLarge = errors.New("media exceeds size limit")

// DefaultAuthHosts are the domains that receive account credentials.
var DefaultAuthHosts = []string{"twilio.com"}

// TwilioMedia downloads message attachments. It implements
// router.MediaFetcher. The account credentials are only sent to AuthHosts
// (or their subdomains); any other host is fetched anonymously.
type TwilioMedia struct {
	HTTP       *http.Client
	AccountSID string
	AuthToken  string
	AuthHosts  []string
	Timeout    time.Duration
	MaxBytes   int64
}

// NewTwilioMedia returns a fetcher with a 16MB limit.
func NewTwilioMedia(sid, token string, timeout time.Duration) *TwilioMedia {
	return &TwilioMedia{
		AccountSID: sid,
		AuthToken:  token,
		AuthHosts:  DefaultAuthHosts,
		Timeout:    timeout,
		MaxBytes:   16 << 20,
	}
}

// sendsCredentials reports whether host is an AuthHosts entry or a
// subdomain of one.
func (t *TwilioMedia) sendsCredentials(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	for _, allowed := range t.AuthHosts {
		allowed = strings.ToLower(allowed)
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Fetch implements router.MediaFetcher.
func (t *TwilioMedia) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid media url %q", rawURL)
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if t.AccountSID != "" && t.AuthToken != "" {
		if t.sendsCredentials(u.Hostname()) {
			req.SetBasicAuth(t.AccountSID, t.AuthToken)
		} else {
			logging.Get(logging.CategoryTransport).Warn("Fetching media from untrusted host %s without credentials", u.Hostname())
		}
	}

	client := t.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	timer := logging.StartTimer(logging.CategoryTransport, "media download")
	defer timer.Stop()

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download: unexpected status %d", resp.StatusCode)
	}

	limit := t.MaxBytes
	if limit <= 0 {
		limit = 16 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrMediaTooLarge
	}
	logging.Transport("Downloaded %d bytes of %s", len(data), resp.Header.Get("Content-Type"))
	return data, nil
}
