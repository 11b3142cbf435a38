package debug

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/dyike/BondCortex/config"
)

func TestInitializeDisabled(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	d := NewEinoDebugger(cfg, zap.NewNop())
	called := false
	d.init = func(context.Context) error {
		called = true
		return nil
	}

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if called || d.IsEnabled() || d.URL() != "" {
		t.Fatalf("disabled debugger must not start")
	}
}

func TestInitializeEnabled(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = true
	d := NewEinoDebugger(cfg, zap.NewNop())

	boom := errors.New("port in use")
	d.init = func(context.Context) error { return boom }
	if err := d.Initialize(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected init error, got %v", err)
	}

	d.init = func(context.Context) error { return nil }
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if d.URL() != "http://localhost:52538" {
		t.Fatalf("unexpected url %s", d.URL())
	}
}
