// Package config resolves the process-wide configuration from environment
// variables and defaults. Configuration is immutable once Load returns.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root, immutable configuration for a running server.
type Config struct {
	ServerName string `mapstructure:"server_name"`
	ServerVer  string `mapstructure:"server_version"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`

	PolicyFile string `mapstructure:"policy_file"`
	PolicyDir  string `mapstructure:"policy_dir"`
	HotReload  bool   `mapstructure:"policy_hot_reload"`

	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`

	StageRoot   string `mapstructure:"blog_stage_root"`
	PublishRoot string `mapstructure:"blog_publish_root"`

	DefaultTimeoutSec    int `mapstructure:"default_timeout_sec"`
	OutputTruncateLimit  int `mapstructure:"output_truncate_limit"`
	ToolTimeoutOverrides map[string]int
	ToolOutputOverrides  map[string]int

	AuditLogPath         string   `mapstructure:"audit_log_path"`
	AuditLogDir          string   `mapstructure:"audit_log_dir"`
	AuditStatsInterval   string   `mapstructure:"audit_stats_interval"`
	AuditSensitiveEnvAdd []string `mapstructure:"-"`

	NotificationsEnabled bool     `mapstructure:"notifications_enabled"`
	NotificationProv     []string `mapstructure:"-"`
	NotificationCats     []string `mapstructure:"-"`
	NotificationTools    []string `mapstructure:"-"`
	GotifyURL            string   `mapstructure:"gotify_url"`
	GotifyToken          string   `mapstructure:"gotify_token"`
	WebhookURL           string   `mapstructure:"webhook_url"`

	RateLimitDisabled bool `mapstructure:"rate_limit_disabled"`
	RateLimitRPM      int  `mapstructure:"rate_limit_rpm"`
	RateLimitBurst    int  `mapstructure:"rate_limit_burst"`

	// MCPEngineCmd, when non-empty, makes the HTTP bridge reach the
	// engine by spawning this command per request instead of calling it
	// in-process. Space-separated argv, e.g. "burlyd stdio".
	MCPEngineCmd string `mapstructure:"mcp_engine_cmd"`
}

// defaultSensitiveEnvVars is the baseline set consulted by the audit
// redactor when a string argument looks like it references one of these
// names.
var defaultSensitiveEnvVars = []string{
	"PASSWORD", "TOKEN", "SECRET", "KEY", "AUTH", "API_KEY", "API_SECRET", "DATABASE_URL",
}

// Load resolves configuration from the environment, applying defaults for
// anything unset. It never fails on missing optional values; only
// malformed numeric overrides return an error, since those indicate a
// broken deployment rather than an absent feature.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	v.SetDefault("server_name", "burlymcp")
	v.SetDefault("server_version", "0.1.0")
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8080)

	v.SetDefault("policy_file", "/config/policy/tools.yaml")
	v.SetDefault("policy_dir", "/config/tools.d")
	v.SetDefault("policy_hot_reload", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")

	v.SetDefault("blog_stage_root", "/srv/blog/stage")
	v.SetDefault("blog_publish_root", "/srv/blog/publish")

	v.SetDefault("default_timeout_sec", 30)
	v.SetDefault("output_truncate_limit", 10240)

	v.SetDefault("audit_log_path", "/var/log/burlymcp/audit.jsonl")
	v.SetDefault("audit_log_dir", "")
	v.SetDefault("audit_stats_interval", "1h")

	v.SetDefault("notifications_enabled", true)
	v.SetDefault("gotify_url", "")
	v.SetDefault("gotify_token", "")
	v.SetDefault("webhook_url", "")

	v.SetDefault("rate_limit_disabled", false)
	v.SetDefault("rate_limit_rpm", 60)
	v.SetDefault("rate_limit_burst", 10)

	v.SetDefault("mcp_engine_cmd", "")

	bindEnv(v, "policy_file", "POLICY_FILE")
	bindEnv(v, "policy_dir", "POLICY_DIR")
	bindEnv(v, "policy_hot_reload", "POLICY_HOT_RELOAD")
	bindEnv(v, "log_level", "LOG_LEVEL")
	bindEnv(v, "log_dir", "LOG_DIR")
	bindEnv(v, "blog_stage_root", "BLOG_STAGE_ROOT")
	bindEnv(v, "blog_publish_root", "BLOG_PUBLISH_ROOT")
	bindEnv(v, "default_timeout_sec", "DEFAULT_TIMEOUT_SEC")
	bindEnv(v, "output_truncate_limit", "OUTPUT_TRUNCATE_LIMIT")
	bindEnv(v, "audit_log_path", "AUDIT_LOG_PATH")
	bindEnv(v, "audit_log_dir", "AUDIT_LOG_DIR")
	bindEnv(v, "audit_stats_interval", "AUDIT_STATS_INTERVAL")
	bindEnv(v, "notifications_enabled", "NOTIFICATIONS_ENABLED")
	bindEnv(v, "gotify_url", "NOTIFY_HTTP_PUSH_URL")
	bindEnv(v, "gotify_token", "NOTIFY_HTTP_PUSH_TOKEN")
	bindEnv(v, "webhook_url", "NOTIFY_WEBHOOK_URL")
	bindEnv(v, "rate_limit_disabled", "RATE_LIMIT_DISABLED")
	bindEnv(v, "rate_limit_rpm", "RATE_LIMIT_RPM")
	bindEnv(v, "rate_limit_burst", "RATE_LIMIT_BURST")
	bindEnv(v, "mcp_engine_cmd", "MCP_ENGINE_CMD")
	bindEnv(v, "server_name", "SERVER_NAME")
	bindEnv(v, "server_version", "SERVER_VERSION")
	bindEnv(v, "host", "HOST")
	bindEnv(v, "port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.NotificationProv = splitCSVEnv("NOTIFICATION_PROVIDERS", []string{"console"})
	cfg.NotificationCats = splitCSVEnv("NOTIFICATION_CATEGORIES", nil)
	cfg.NotificationTools = splitCSVEnv("NOTIFICATION_TOOLS", nil)
	cfg.AuditSensitiveEnvAdd = append(append([]string{}, defaultSensitiveEnvVars...), splitCSVEnv("AUDIT_SENSITIVE_ENV_VARS", nil)...)

	overrides, outOverrides, err := toolOverridesFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.ToolTimeoutOverrides = overrides
	cfg.ToolOutputOverrides = outOverrides

	return &cfg, nil
}

func bindEnv(v *viper.Viper, key, env string) {
	_ = v.BindEnv(key, env)
}

// splitCSVEnv reads a comma-separated environment variable, trimming
// whitespace around each entry and dropping empty entries. Returns def
// when the variable is unset.
func splitCSVEnv(name string, def []string) []string {
	raw, ok := lookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// toolOverridesFromEnv scans the process environment for
// TOOL_TIMEOUT_<NAME> and TOOL_OUTPUT_LIMIT_<NAME> variables
func toolOverridesFromEnv() (map[string]int, map[string]int, error) {
	timeouts := map[string]int{}
	outputs := map[string]int{}
	for _, kv := range environ() {
		k, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(k, "TOOL_TIMEOUT_"):
			name := strings.TrimPrefix(k, "TOOL_TIMEOUT_")
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, nil, fmt.Errorf("config: invalid %s: %w", k, err)
			}
			timeouts[name] = n
		case strings.HasPrefix(k, "TOOL_OUTPUT_LIMIT_"):
			name := strings.TrimPrefix(k, "TOOL_OUTPUT_LIMIT_")
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, nil, fmt.Errorf("config: invalid %s: %w", k, err)
			}
			outputs[name] = n
		}
	}
	return timeouts, outputs, nil
}

// AuditStatsWindow parses AuditStatsInterval, falling back to one hour.
func (c *Config) AuditStatsWindow() time.Duration {
	d, err := time.ParseDuration(c.AuditStatsInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
