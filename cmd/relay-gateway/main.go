// ABOUTME: Entry point for the relay-gateway chat server
// ABOUTME: Wires store, backend client, orchestrator, HTTP API, and web UI together

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/2389/chat-relay/internal/config"
	"github.com/2389/chat-relay/internal/conversation"
	"github.com/2389/chat-relay/internal/httpapi"
	"github.com/2389/chat-relay/internal/ollama"
	"github.com/2389/chat-relay/internal/prompt"
	"github.com/2389/chat-relay/internal/sentiment"
	"github.com/2389/chat-relay/internal/store"
	"github.com/2389/chat-relay/internal/thoughts"
	"github.com/2389/chat-relay/internal/webui"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
          _                             _
 _ __ ___| | __ _ _   _       __ _  ___| |___      ____ _ _   _
| '__/ _ \ |/ _' | | | |____ / _' |/ _' | __\ \ /\ / / _' | | | |
| | |  __/ | (_| | |_| |____| (_| | (_| | |_ \ V  V / (_| | |_| |
|_|  \___|_|\__,_|\__, |     \__, |\__,_|\__| \_/\_/ \__,_|\__, |
                  |___/      |___/                         |___/
`

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 10 * time.Second

// getConfigPath returns the path to the gateway config file.
// Priority: RELAY_CONFIG env var > XDG_CONFIG_HOME/relay/gateway.yaml > ~/.config/relay/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("RELAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "relay", "gateway.yaml")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration; a missing file means defaults
	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		configPath = "(defaults)"
	} else if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Backend: %s (%s)\n", cfg.Backend.Host, cfg.Backend.Model)
	fmt.Println()

	logger.Info("starting relay-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"backend", cfg.Backend.Host,
		"model", cfg.Backend.Model,
	)

	// Storage
	fileStore := store.NewFileStore(cfg.Store.Path, cfg.Store.MaxTurns, logger)
	fileStore.Load()

	thoughtLog, err := store.NewThoughtLog(cfg.Store.ThoughtLogPath, logger)
	if err != nil {
		return fmt.Errorf("opening thought log: %w", err)
	}
	defer thoughtLog.Close()

	agentLog := store.NewAgentLog(cfg.Store.AgentLogPath, logger)

	// Prompt templates (optional override file)
	var templates map[string]string
	if cfg.Prompt.TemplatePath != "" {
		templates, err = prompt.LoadTemplates(cfg.Prompt.TemplatePath)
		if err != nil {
			return fmt.Errorf("loading prompt templates: %w", err)
		}
	}

	// Orchestration
	backend := ollama.NewClient(cfg.Backend.Host, cfg.Backend.Model, cfg.Backend.Timeout, logger)
	notifier := conversation.NewNotifier(logger)
	svc := conversation.New(
		fileStore,
		backend,
		sentiment.NewScorer(),
		thoughts.NewRuleBased(),
		prompt.NewBuilder(cfg.Prompt.RecentWindow, templates),
		notifier,
		logger,
	)

	// HTTP surface
	api := httpapi.NewServer(svc, thoughtLog, agentLog,
		cfg.Limits.ChatPerMinute, cfg.Limits.LogPerMinute, logger)
	ui := webui.New(fileStore, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.Handler())
	mux.Handle("/ui/", ui.Handler())
	mux.Handle("/", ui.Handler())

	server := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		// Final snapshot so in-memory state survives the restart
		fileStore.Save()
		return nil
	})

	return g.Wait()
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = newColorHandler(level)
	}

	return slog.New(handler)
}

// colorHandler writes compact colorized log lines to stdout.
type colorHandler struct {
	mu    *sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

var levelTags = map[slog.Level]string{
	slog.LevelDebug: color.MagentaString("DBG"),
	slog.LevelInfo:  color.CyanString("INF"),
	slog.LevelWarn:  color.YellowString("WRN"),
	slog.LevelError: color.New(color.FgRed, color.Bold).Sprint("ERR"),
}

func newColorHandler(level slog.Level) *colorHandler {
	return &colorHandler{mu: &sync.Mutex{}, level: level}
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05")))
	buf.WriteByte(' ')
	tag, ok := levelTags[r.Level]
	if !ok {
		tag = "???"
	}
	buf.WriteString(tag)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	writeAttr := func(a slog.Attr) {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := os.Stdout.WriteString(buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup is accepted but flattened; grouped keys keep their own names.
func (h *colorHandler) WithGroup(string) slog.Handler {
	return h
}
