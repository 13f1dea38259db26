// Command sttd serves the transcription router over HTTP, or transcribes a
// single file with -file and prints the JSON result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kbukum/sttkit/bootstrap"
	"github.com/kbukum/sttkit/config"
	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/server"
	"github.com/kbukum/sttkit/transcription"
	"github.com/kbukum/sttkit/validation"
	"github.com/kbukum/sttkit/version"
)

const serviceName = "sttd"

type flags struct {
	configPath  string
	envPath     string
	file        string
	provider    string
	language    string
	diarize     bool
	showVersion bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "Path to config.yml (searched in the standard locations when empty)")
	fs.StringVar(&f.envPath, "env", "", "Path to a .env file")
	fs.StringVar(&f.file, "file", "", "Transcribe this audio file, print the JSON result and exit")
	fs.StringVar(&f.provider, "provider", "", "Provider for -file; empty or \"auto\" uses priority order with fallback")
	fs.StringVar(&f.language, "language", "", "ISO 639-1 language hint for -file")
	fs.BoolVar(&f.diarize, "diarize", false, "Request speaker labels for -file")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	f.language = strings.ToLower(strings.TrimSpace(f.language))
	v := validation.New().LanguageCode("language", f.language)
	if f.file == "" && (f.provider != "" || f.language != "" || f.diarize) {
		v.AddError("file", "-provider, -language and -diarize require -file")
	}
	if appErr := v.Validate(); appErr != nil {
		return f, appErr
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if f.showVersion {
		fmt.Println(version.Get().String())
		return
	}
	if err := run(context.Background(), f, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, stdout io.Writer) error {
	var cfg Config
	var loadOpts []config.LoaderOption
	if f.configPath != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(f.configPath))
	}
	if f.envPath != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(f.envPath))
	}
	if err := config.LoadConfig(serviceName, &cfg, loadOpts...); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	shutdownTelemetry, err := observability.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	app.OnStop(shutdownTelemetry)

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return err
	}

	svc, err := buildService(&cfg, metrics, log, os.Stderr)
	if err != nil {
		return err
	}
	// Failure notifications are delivered in the background.
	app.OnStop(func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			svc.router.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("pending notifications: %w", ctx.Err())
		}
	})

	for _, info := range svc.registry.Describe(ctx) {
		app.Summary.TrackProvider(bootstrap.ProviderEntry{
			Name:      info.Name,
			Priority:  info.Priority,
			Available: info.Available,
			Status:    info.Health.Status.String(),
			Detail:    info.Health.Message,
		})
	}
	if svc.dispatcher != nil {
		for _, name := range svc.dispatcher.Channels() {
			app.Summary.TrackChannel(name)
		}
	}
	app.AddReadyCheck("providers", func(context.Context) error {
		if app.Summary.Available() == 0 {
			return fmt.Errorf("no provider has credentials")
		}
		return nil
	})

	if f.file != "" {
		app.Summary.SetOutput(nil)
		return app.RunTask(ctx, func(ctx context.Context) error {
			return transcribeFile(ctx, svc.router, f, stdout)
		})
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(metrics)
	srv.RegisterRoutes(server.API{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Transcriber: svc.router,
		Providers:   svc.registry,
	})
	for _, r := range srv.GinEngine().Routes() {
		app.Summary.TrackRoute(r.Method, r.Path)
	}
	app.OnStart(func(ctx context.Context) error {
		if err := srv.Start(ctx); err != nil {
			return err
		}
		app.Summary.TrackListener(srv.Addr())
		return nil
	})
	app.OnStop(srv.Stop)

	return app.Run(ctx)
}

func transcribeFile(ctx context.Context, t *transcription.Router, f flags, out io.Writer) error {
	res, err := t.Transcribe(ctx, f.file, transcription.Request{
		Provider: f.provider,
		Options:  transcription.Options{Language: f.language, Diarize: f.diarize},
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
