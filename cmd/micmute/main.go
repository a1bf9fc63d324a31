package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"micmute/pkg/app"
	"micmute/pkg/config"
	"micmute/pkg/logging"
	"micmute/pkg/version"
	"micmute/ui"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	// Default to "info"; override with MICMUTE_LOG_LEVEL env var (debug, info, warn, error).
	level := "info"
	if v := os.Getenv("MICMUTE_LOG_LEVEL"); v != "" {
		level = v
	}
	format := "text"
	if v := os.Getenv("MICMUTE_LOG_FORMAT"); v != "" {
		format = v
	}
	_ = logging.Setup(logging.Options{
		Level:  level,
		Format: format,
		Output: os.Stdout,
	})
	slog.Info("starting micmute", "version", version.String())

	raiseProcessPriority()

	store := config.NewStore(config.Dir())
	cfg, err := store.Load()
	if err != nil {
		slog.Error("cannot read config", "path", store.Path(), "error", err)
		os.Exit(1)
	}

	var opts app.Options
	watcher, err := config.Watch(store.Path())
	if err != nil {
		slog.Warn("config watching unavailable", "error", err)
	} else {
		defer func() { _ = watcher.Close() }()
		opts.ConfigChanges = watcher.Changes()
	}

	ctx, cancel := context.WithCancel(context.Background())

	var tray *ui.Tray
	a := app.New(cfg, store, app.Observers{
		OnMuteChanged:   func(muted bool) { tray.SetMuted(muted) },
		OnVoiceActivity: func(active bool) { tray.SetVoiceActivity(active) },
		OnConfigChanged: func(c *config.Config) { tray.ApplyConfig(c) },
	}, opts)
	tray = ui.New(a, cancel)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.Run(ctx); err != nil {
			slog.Error("app failed", "error", err)
			tray.Quit()
		}
	}()

	// Blocks until Quit is chosen from the menu or the app fails.
	tray.Run()
	cancel()
	<-done
}
