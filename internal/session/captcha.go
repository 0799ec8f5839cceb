package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaVerifier checks a client captcha response.
type CaptchaVerifier interface {
	Verify(ctx context.Context, response, remoteIP string) error
}

// NoCaptcha accepts every response.
type NoCaptcha struct{}

func (NoCaptcha) Verify(context.Context, string, string) error { return nil }

// DefaultRecaptchaURL is Google's siteverify endpoint.
const DefaultRecaptchaURL = "https://www.google.com/recaptcha/api/siteverify"

// Recaptcha verifies responses against a reCAPTCHA siteverify endpoint.
type Recaptcha struct {
	secret  string
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewRecaptcha constructs a Recaptcha verifier. Empty endpoint selects
// DefaultRecaptchaURL.
func NewRecaptcha(secret, endpoint string, timeout time.Duration) *Recaptcha {
	if endpoint == "" {
		endpoint = DefaultRecaptchaURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recaptcha{secret: secret, url: endpoint, client: &http.Client{}, timeout: timeout}
}

type recaptchaReply struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns ErrCaptchaFailed for empty or rejected responses and a
// wrapped transport error when the endpoint cannot be reached.
func (r *Recaptcha) Verify(ctx context.Context, response, remoteIP string) error {
	if strings.TrimSpace(response) == "" {
		return ErrCaptchaFailed
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	form := url.Values{"secret": {r.secret}, "response": {response}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("session: captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("session: captcha verify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session: captcha verify: status %d", resp.StatusCode)
	}

	var reply recaptchaReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("session: captcha decode: %w", err)
	}
	if !reply.Success {
		return ErrCaptchaFailed
	}
	return nil
}
