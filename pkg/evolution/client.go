// Package evolution is a client for the Evolution API WhatsApp gateway.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aidiscovery-cli/internal/resilience"
)

// Client sends WhatsApp messages.
type Client interface {
	SendText(ctx context.Context, number, text string) (*SendResult, error)
}

// SendResult is the gateway's acknowledgement of a sent message.
type SendResult struct {
	MessageID string
	Status    string
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL  string
	apiKey   string
	instance string
	http     *http.Client
}

// NewClient creates an Evolution API client for one instance.
func NewClient(baseURL, apiKey, instance string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		instance: instance,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Status string `json:"status"`
}

func (c *httpClient) SendText(ctx context.Context, number, text string) (*SendResult, error) {
	if number == "" {
		return nil, eris.New("evolution: empty number")
	}

	body, err := json.Marshal(sendTextRequest{Number: number, Text: text})
	if err != nil {
		return nil, eris.Wrap(err, "evolution: marshal request")
	}

	endpoint := c.baseURL + "/message/sendText/" + url.PathEscape(c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "evolution: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "evolution: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "evolution: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := eris.Errorf("evolution: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var out sendTextResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "evolution: unmarshal response")
	}

	status := "sent"
	if out.Status != "" {
		status = strings.ToLower(out.Status)
	}
	return &SendResult{MessageID: out.Key.ID, Status: status}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone converts a Brazilian phone number to the digits-only form
// the gateway expects, e.g. "+55 11 99999-1234" and "11999991234" both
// become "5511999991234". Unrecognized lengths are returned as digits.
func NormalizePhone(phone string) string {
	digits := digitsOnly(phone)
	if strings.HasPrefix(digits, "55") && len(digits) >= 12 {
		return digits
	}
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}

// ValidatePhone reports whether phone looks like a Brazilian number: an
// 11-digit mobile (area code plus a number starting with 9) or a 10-digit
// landline, with or without the 55 country code.
func ValidatePhone(phone string) bool {
	digits := strings.TrimPrefix(digitsOnly(phone), "55")
	switch len(digits) {
	case 11:
		return digits[2] == '9'
	case 10:
		return true
	default:
		return false
	}
}
