package notify

import "github.com/rs/zerolog"

// Manager is the fan-out point every dispatcher outcome goes through.
// A disabled manager reports success unconditionally so that operations
// never fail due to notification backpressure.
type Manager struct {
	enabled         bool
	providers       []Provider
	categoryFilters map[Category]bool // nil/empty means "all categories"
	toolFilters     map[string]bool   // nil/empty means "all tools"
	log             zerolog.Logger
}

// Config selects which providers to construct and the filters to
// apply, mirroring the NOTIFICATION_PROVIDERS, NOTIFICATION_CATEGORIES,
// and NOTIFICATION_TOOLS environment variables.
type Config struct {
	Enabled    bool
	Providers  []string
	Categories []string
	Tools      []string
	HTTPPushURL, HTTPPushToken string
	WebhookURL string
}

// NewManager builds a Manager from Config, constructing only the
// requested provider instances.
func NewManager(cfg Config, log zerolog.Logger) *Manager {
	m := &Manager{enabled: cfg.Enabled, log: log}

	for _, name := range cfg.Providers {
		switch name {
		case "console":
			m.providers = append(m.providers, NewConsoleProvider(log))
		case "http_push", "gotify":
			m.providers = append(m.providers, NewHTTPPushProvider(cfg.HTTPPushURL, cfg.HTTPPushToken))
		case "webhook":
			m.providers = append(m.providers, NewWebhookProvider(cfg.WebhookURL, nil))
		}
	}

	if len(cfg.Categories) > 0 {
		m.categoryFilters = map[Category]bool{}
		for _, c := range cfg.Categories {
			m.categoryFilters[Category(c)] = true
		}
	}
	if len(cfg.Tools) > 0 {
		m.toolFilters = map[string]bool{}
		for _, t := range cfg.Tools {
			m.toolFilters[t] = true
		}
	}
	return m
}

// Send dispatches msg through every available provider, returning true
// iff the system is disabled, the message is dropped by the category or
// tool filters, or at least one provider accepted the delivery. Each provider call is isolated: a panic or failure there
// never escapes Send.
func (m *Manager) Send(msg Message) bool {
	if !m.enabled {
		return true
	}
	if !m.shouldSend(msg) {
		return true
	}

	successCount := 0
	for _, p := range m.providers {
		if !p.Available() {
			continue
		}
		if safeSend(p, msg, m.log) {
			successCount++
		}
	}
	return successCount > 0
}

func safeSend(p Provider, msg Message, log zerolog.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("provider", p.Name()).Msg("notification provider panicked")
			ok = false
		}
	}()
	return p.Send(msg)
}

func (m *Manager) shouldSend(msg Message) bool {
	if m.categoryFilters != nil && !m.categoryFilters[msg.Category] {
		return false
	}
	if m.toolFilters != nil && msg.ToolName != "" && !m.toolFilters[msg.ToolName] {
		return false
	}
	return true
}

// ToolSuccess, ToolFailure, ToolConfirmation, and SecurityViolation
// build and send the standard message for each dispatcher outcome.
func (m *Manager) ToolSuccess(tool, summary string) bool {
	return m.Send(Message{Title: "Tool succeeded", Body: summary, Priority: PriorityLow, Category: CategoryToolSuccess, ToolName: tool})
}

func (m *Manager) ToolFailure(tool, summary string) bool {
	return m.Send(Message{Title: "Tool failed", Body: summary, Priority: PriorityHigh, Category: CategoryToolFailure, ToolName: tool})
}

func (m *Manager) ToolConfirmation(tool, summary string) bool {
	return m.Send(Message{Title: "Confirmation required", Body: summary, Priority: PriorityNormal, Category: CategoryToolConfirmation, ToolName: tool})
}

func (m *Manager) SecurityViolation(kind, detail string) bool {
	return m.Send(Message{Title: "Security violation: " + kind, Body: detail, Priority: PriorityCritical, Category: CategorySecurity})
}

// Status reports the manager's configuration for /health.
type Status struct {
	Enabled    bool     `json:"enabled"`
	Providers  []string `json:"providers"`
	Categories []string `json:"categories,omitempty"`
	Tools      []string `json:"tools,omitempty"`
}

func (m *Manager) GetStatus() Status {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	s := Status{Enabled: m.enabled, Providers: names}
	for c := range m.categoryFilters {
		s.Categories = append(s.Categories, string(c))
	}
	for t := range m.toolFilters {
		s.Tools = append(s.Tools, t)
	}
	return s
}
