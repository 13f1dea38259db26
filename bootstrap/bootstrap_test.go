package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/sttkit/config"
	"github.com/kbukum/sttkit/logger"
)

type testConfig struct {
	config.ServiceConfig
}

func newTestApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "test-svc", Version: "1.0.0"}}
	app, err := NewApp(cfg, WithLogger(logger.NewNop()), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	app.Summary.SetOutput(nil)
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %s %s", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("expected defaults to be applied, got environment %q", app.Cfg.Environment)
	}
	if app.gracefulTimeout != time.Second {
		t.Errorf("expected graceful timeout option, got %s", app.gracefulTimeout)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "moon"}}
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRun_HookOrder(t *testing.T) {
	app := newTestApp(t)
	var order []string
	record := func(name string) Hook {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	app.OnStart(record("start1"), record("start2"))
	app.OnReady(record("ready"))
	app.OnStop(record("stop1"), record("stop2"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "start1,start2,ready,stop2,stop1"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRun_StartFailureStops(t *testing.T) {
	app := newTestApp(t)
	stopped := false
	app.OnStart(func(context.Context) error { return errors.New("bind failed") })
	app.OnStop(func(context.Context) error {
		stopped = true
		return nil
	})

	err := app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bind failed") {
		t.Fatalf("expected start error, got %v", err)
	}
	if !stopped {
		t.Error("stop hooks should run after a failed start")
	}
}

func TestRunTask(t *testing.T) {
	app := newTestApp(t)
	stopErr := errors.New("flush failed")
	app.OnStop(func(context.Context) error { return stopErr })

	taskErr := errors.New("task failed")
	if err := app.RunTask(context.Background(), func(context.Context) error { return taskErr }); !errors.Is(err, taskErr) {
		t.Errorf("task error should take precedence, got %v", err)
	}

	app2 := newTestApp(t)
	app2.OnStop(func(context.Context) error { return stopErr })
	if err := app2.RunTask(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, stopErr) {
		t.Errorf("expected stop error, got %v", err)
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t)
	app.AddReadyCheck("providers", func(context.Context) error { return errors.New("none available") })
	app.AddReadyCheck("ok", func(context.Context) error { return nil })

	err := app.ReadyCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "providers(none available)") {
		t.Fatalf("unexpected ready check result %v", err)
	}
	if strings.Contains(err.Error(), "ok(") {
		t.Error("passing checks should not be reported")
	}
}

func TestSummary_Display(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummary("sttd", "1.2.3")
	s.SetOutput(&buf)
	s.TrackListener("127.0.0.1:8080")
	s.TrackProvider(ProviderEntry{Name: "openai", Priority: 1, Available: true, Status: "healthy"})
	s.TrackProvider(ProviderEntry{Name: "whisper", Priority: 2, Status: "unavailable", Detail: "WHISPER_URL not set"})
	s.TrackChannel("console")
	s.TrackRoute("POST", "/v1/transcriptions")
	s.Display(logger.NewNop())

	out := buf.String()
	for _, want := range []string{
		"sttd 1.2.3 started",
		"listening on 127.0.0.1:8080",
		"Providers (1/2 available)",
		"├── [ok] 1. openai (healthy)",
		"└── [--] 2. whisper (unavailable): WHISPER_URL not set",
		"└── console",
		"/v1/transcriptions",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
