package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chaz8081/bleterm/internal/ble"
	"github.com/chaz8081/bleterm/internal/config"
	"github.com/chaz8081/bleterm/internal/session"
	"github.com/chaz8081/bleterm/internal/tui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/bleterm/config.yaml)")
	plain := flag.Bool("plain", false, "print session log lines instead of starting the TUI")
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	if *writeConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			log.Printf("Config already exists at %s", config.DefaultConfigPath())
		} else {
			log.Printf("Wrote default config to %s", path)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *plain {
		cfg.UI.Mode = "plain"
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeLog()

	if cfg.UI.Mode == "plain" {
		printBanner(cfg)
	}

	gw := ble.NewTinyGoGateway(cfg.Session.EventBuffer)
	defer gw.Close()

	ctrl := session.NewController(gw, session.Options{
		CommandBuffer: cfg.Session.CommandBuffer,
		AutoStart:     cfg.Scan.AutoStart,
		ClearOnDrop:   cfg.Session.ClearOnDrop,
		HexFallback:   cfg.Session.HexFallback,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("[main] controller stopped", "error", err)
		}
	}()

	if err := ctrl.Initialize(); err != nil {
		// The controller reports this in the session log and error state.
		slog.Error("[main] Bluetooth unavailable", "error", err)
	}

	switch cfg.UI.Mode {
	case "plain":
		runPlain(ctx, ctrl)
	default:
		if err := runTUI(ctx, ctrl); err != nil && ctx.Err() == nil {
			log.Printf("ERROR: %v", err)
		}
	}

	stop()
	<-runDone
}

// runTUI blocks until the user quits the terminal UI or ctx is done.
func runTUI(ctx context.Context, ctrl *session.Controller) error {
	updates, cancel := ctrl.Subscribe()
	defer cancel()

	p := tea.NewProgram(tui.New(ctrl, ctrl.Snapshot()), tea.WithAltScreen(), tea.WithContext(ctx))
	go tui.Forward(p, updates)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

// runPlain prints each new session log line until ctx is done.
func runPlain(ctx context.Context, ctrl *session.Controller) {
	updates, cancel := ctrl.Subscribe()
	defer cancel()

	log.Println("Ready! Ctrl+C to quit.")

	printed := 0
	for {
		select {
		case <-ctx.Done():
			log.Println("Goodbye!")
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			// Starting a scan clears the log.
			if len(snap.Log) < printed {
				printed = 0
			}
			for _, e := range snap.Log[printed:] {
				fmt.Println(e.String())
			}
			printed = len(snap.Log)
		}
	}
}

// setupLogging installs the default slog logger. The TUI owns the terminal,
// so in tui mode records go to a file.
func setupLogging(cfg *config.Config) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	path := cfg.LogFile
	if path == "" && cfg.UI.Mode == "tui" {
		path = config.DefaultLogFile()
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)})
	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== bleterm ===")
	fmt.Printf("  Auto scan:     %t\n", cfg.Scan.AutoStart)
	fmt.Printf("  Clear on drop: %t\n", cfg.Session.ClearOnDrop)
	fmt.Printf("  Hex fallback:  %t\n", cfg.Session.HexFallback)
	fmt.Printf("  Log:           %s\n", cfg.LogLevel)
	fmt.Println("===============")
}
