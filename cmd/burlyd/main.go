// burlyd is the policy-gated tool execution server. Run with no
// arguments it serves the HTTP bridge; run as "burlyd stdio" it speaks
// the newline-framed protocol on stdin/stdout, the mode the bridge's
// subprocess transport and MCP-native clients use.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"burlymcp/internal/audit"
	"burlymcp/internal/config"
	"burlymcp/internal/feature"
	"burlymcp/internal/gateway"
	"burlymcp/internal/gateway/handlers"
	"burlymcp/internal/mcp"
	"burlymcp/internal/mcp/transport"
	"burlymcp/internal/notify"
	"burlymcp/internal/policy"
	"burlymcp/internal/tool"
	"burlymcp/pkg/logger"
)

const dockerSocketPath = "/var/run/docker.sock"

// applyPolicyConfig folds the base policy file's config block into the
// process configuration. Environment variables win: a file value is
// taken only when the corresponding variable was not set.
func applyPolicyConfig(cfg *config.Config, p policy.PolicyConfig) {
	envSet := func(name string) bool {
		_, ok := os.LookupEnv(name)
		return ok
	}
	if p.OutputTruncateLimit > 0 && !envSet("OUTPUT_TRUNCATE_LIMIT") {
		cfg.OutputTruncateLimit = p.OutputTruncateLimit
	}
	if p.DefaultTimeoutSec > 0 && !envSet("DEFAULT_TIMEOUT_SEC") {
		cfg.DefaultTimeoutSec = p.DefaultTimeoutSec
	}
	if p.AuditLogPath != "" && !envSet("AUDIT_LOG_PATH") {
		cfg.AuditLogPath = p.AuditLogPath
	}
	if p.StagingRoot != "" && !envSet("BLOG_STAGE_ROOT") {
		cfg.StageRoot = p.StagingRoot
	}
	if p.PublishRoot != "" && !envSet("BLOG_PUBLISH_ROOT") {
		cfg.PublishRoot = p.PublishRoot
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("configuration failed")
		return 1
	}

	stdioMode := len(os.Args) > 1 && os.Args[1] == "stdio"

	logFormat := "json"
	if !stdioMode && os.Getenv("LOG_FORMAT") == "console" {
		logFormat = "console"
	}
	log, err := logger.Init(logger.Options{
		Level:      cfg.LogLevel,
		Format:     logFormat,
		Dir:        cfg.LogDir,
		ServerName: cfg.ServerName,
	})
	if err != nil {
		logger.Error().Err(err).Msg("logging setup failed")
		return 1
	}
	defer logger.Close()

	src := policy.Source{
		File:            cfg.PolicyFile,
		OverlayDir:      cfg.PolicyDir,
		EnvFileOverride: os.Getenv("POLICY_FILE"),
	}
	registry, summary, err := policy.Load(src)
	if err != nil {
		log.Error().Err(err).Str("file", cfg.PolicyFile).Msg("policy load failed")
		return 1
	}
	log.Info().
		Int("tools_from_file", summary.ToolsFromFile).
		Int("overlay_files_scanned", summary.OverlayFilesScanned).
		Int("overlay_tools", summary.OverlayTools).
		Int("enabled", summary.Enabled).
		Int("disabled", summary.Disabled).
		Int("invalid", summary.Invalid).
		Msg("policy loaded")

	applyPolicyConfig(cfg, registry.Config())

	auditPath := cfg.AuditLogPath
	if cfg.AuditLogDir != "" {
		auditPath = filepath.Join(cfg.AuditLogDir, "audit.jsonl")
	}
	auditLog, err := audit.NewFileLogger(auditPath)
	if err != nil {
		log.Error().Err(err).Str("path", auditPath).Msg("audit log setup failed")
		return 1
	}
	defer auditLog.Close()

	redactor := audit.NewRedactor(cfg.AuditSensitiveEnvAdd)

	notifier := notify.NewManager(notify.Config{
		Enabled:       cfg.NotificationsEnabled,
		Providers:     cfg.NotificationProv,
		Categories:    cfg.NotificationCats,
		Tools:         cfg.NotificationTools,
		HTTPPushURL:   cfg.GotifyURL,
		HTTPPushToken: cfg.GotifyToken,
		WebhookURL:    cfg.WebhookURL,
	}, logger.With("notify"))

	notifConfigured := cfg.GotifyURL != "" || cfg.WebhookURL != ""
	detector := feature.NewDetector(dockerSocketPath, cfg.NotificationsEnabled, notifConfigured,
		cfg.StageRoot, cfg.PublishRoot, cfg.PolicyFile)

	live := policy.NewLive(registry)
	if cfg.HotReload && cfg.PolicyDir != "" {
		watcher, err := live.WatchDir(src, func(s policy.LoadSummary, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("policy reload failed, keeping previous registry")
				return
			}
			log.Info().Int("enabled", s.Enabled).Msg("policy reloaded")
		})
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.PolicyDir).Msg("policy hot-reload unavailable")
		} else {
			defer watcher.Close()
		}
	}

	dispatcher := tool.New(live, auditLog, redactor, notifier, detector,
		cfg.StageRoot, cfg.PublishRoot, cfg.OutputTruncateLimit, cfg.DefaultTimeoutSec,
		logger.With("dispatcher"))
	dispatcher.TimeoutOverrides = cfg.ToolTimeoutOverrides
	dispatcher.OutputOverrides = cfg.ToolOutputOverrides
	dispatcher.AllowedExtensions = registry.Config().AllowedExtensions

	if stdioMode {
		return runStdio(dispatcher, live, log)
	}
	return runBridge(cfg, dispatcher, live, detector, notifier, auditPath, log)
}

// runStdio serves the protocol on stdin/stdout until EOF. Diagnostics
// go to stderr only; stdout carries nothing but response frames.
func runStdio(dispatcher *tool.Dispatcher, live *policy.Live, log zerolog.Logger) int {
	engine := mcp.NewEngine(dispatcher, live, "stdio", logger.With("mcp"))
	if err := engine.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("engine loop failed")
		return 1
	}
	return 0
}

// runBridge serves HTTP until SIGINT/SIGTERM.
func runBridge(cfg *config.Config, dispatcher *tool.Dispatcher, live *policy.Live, detector *feature.Detector, notifier *notify.Manager, auditPath string, log zerolog.Logger) int {
	var engine transport.Caller
	if cfg.MCPEngineCmd != "" {
		engine = transport.Subprocess{
			Command: strings.Fields(cfg.MCPEngineCmd),
			KeepEnv: []string{"POLICY_FILE", "POLICY_DIR", "AUDIT_LOG_PATH", "AUDIT_LOG_DIR"},
			Log:     logger.With("transport"),
		}
	} else {
		engine = transport.InProcess{Engine: mcp.NewEngine(dispatcher, live, "http", logger.With("mcp"))}
	}

	if cfg.AuditLogDir != "" {
		rollup, err := audit.StartRollup(auditPath, cfg.AuditStatsWindow(), logger.With("audit"))
		if err != nil {
			log.Warn().Err(err).Msg("audit stats rollup unavailable")
		} else {
			defer rollup.Stop()
		}
	}

	health := handlers.NewHealthHandler(engine, detector, notifier, cfg.ServerName, cfg.ServerVer, true)
	srv := gateway.NewServer(cfg, engine, health, logger.With("gateway"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("shutdown incomplete")
		}
		return 0
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
			return 1
		}
		return 0
	}
}
