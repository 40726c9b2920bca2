// voxd is a push-to-talk dictation daemon: hold a hotkey, speak,
// release, and the transcribed text lands in the clipboard or the
// focused window.
//
// Usage:
//
//	voxd [daemon] [flags]      run the dictation daemon (default)
//	voxd transcribe-worker     internal per-utterance worker process
//	voxd history [-n N]        print recent dictations
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxd/voxd/config"
	"github.com/voxd/voxd/daemon"
	"github.com/voxd/voxd/history"
	"github.com/voxd/voxd/transcribe"
)

var version = "dev"

func main() {
	args := os.Args[1:]
	cmd := "daemon"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd = args[0]
		args = args[1:]
	}

	var err error
	switch cmd {
	case "daemon":
		err = runDaemon(args)
	case "transcribe-worker":
		err = runWorker(args)
	case "history":
		err = runHistory(args)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func runDaemon(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogging(*debug)
	slog.Info("voxd starting", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := daemon.New(cfg, *configPath)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

// runWorker reads one audio buffer from stdin, transcribes it and
// writes one JSON response line to stdout. The daemon spawns this
// subcommand for every utterance; logging is kept on stderr so stdout
// stays clean for the response.
func runWorker(args []string) error {
	fs := flag.NewFlagSet("transcribe-worker", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	model := fs.String("model", "", "model name or path (overrides config)")
	language := fs.String("language", "", "spoken language (overrides config)")
	translate := fs.Bool("translate", false, "translate to English")
	threads := fs.Int("threads", 0, "inference threads (overrides config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogging(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	wcfg := cfg.Whisper
	if *model != "" {
		wcfg.Model = *model
	}
	if *language != "" {
		wcfg.Language = *language
	}
	if *translate {
		wcfg.Translate = true
	}
	if *threads > 0 {
		wcfg.Threads = *threads
	}

	return transcribe.RunWorker(wcfg, os.Stdin, os.Stdout)
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	n := fs.Int("n", 20, "number of entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogging(false)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir, err := cfg.History.ResolveHistoryDir()
	if err != nil {
		return err
	}

	store, err := history.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(*n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  (%s)  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Duration.Round(100*time.Millisecond),
			e.Text,
		)
	}
	return nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
