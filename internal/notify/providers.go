package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleProvider is always available. High and critical priorities go
// to the warn stream so they stand out in aggregated logs; everything
// else goes to info.
type ConsoleProvider struct {
	log zerolog.Logger
}

func NewConsoleProvider(log zerolog.Logger) *ConsoleProvider {
	return &ConsoleProvider{log: log}
}

func (c *ConsoleProvider) Name() string    { return "console" }
func (c *ConsoleProvider) Available() bool { return true }

func (c *ConsoleProvider) Send(msg Message) bool {
	evt := c.log.Info()
	if msg.Priority == PriorityHigh || msg.Priority == PriorityCritical {
		evt = c.log.Warn()
	}
	evt.Str("category", string(msg.Category)).
		Str("priority", string(msg.Priority)).
		Str("tool", msg.ToolName).
		Msg(msg.Title + ": " + msg.Body)
	return true
}

// priorityToScale maps the four-level priority onto the 0-10 numeric
// scale Gotify-style push endpoints expect.
var priorityToScale = map[Priority]int{
	PriorityLow:      2,
	PriorityNormal:   5,
	PriorityHigh:     8,
	PriorityCritical: 10,
}

// HTTPPushProvider POSTs {title, message, priority: 0-10} to a
// configured base URL with the token as a query parameter.
type HTTPPushProvider struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPPushProvider(baseURL, token string) *HTTPPushProvider {
	return &HTTPPushProvider{BaseURL: baseURL, Token: token, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (p *HTTPPushProvider) Name() string    { return "http_push" }
func (p *HTTPPushProvider) Available() bool { return p.BaseURL != "" }

func (p *HTTPPushProvider) Send(msg Message) bool {
	if !p.Available() {
		return false
	}
	body, err := json.Marshal(map[string]any{
		"title":    msg.Title,
		"message":  msg.Body,
		"priority": priorityToScale[msg.Priority],
	})
	if err != nil {
		return false
	}

	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return false
	}
	if p.Token != "" {
		q := u.Query()
		q.Set("token", p.Token)
		u.RawQuery = q.Encode()
	}

	resp, err := p.Client.Post(u.String(), "application/json", bytes.NewReader(body))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// WebhookProvider POSTs the full message document to a configured URL
// with configurable headers.
type WebhookProvider struct {
	URL     string
	Headers map[string]string
	Client  *http.Client
}

func NewWebhookProvider(url string, headers map[string]string) *WebhookProvider {
	return &WebhookProvider{URL: url, Headers: headers, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (w *WebhookProvider) Name() string    { return "webhook" }
func (w *WebhookProvider) Available() bool { return w.URL != "" }

func (w *WebhookProvider) Send(msg Message) bool {
	if !w.Available() {
		return false
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	req, err := http.NewRequest(http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
