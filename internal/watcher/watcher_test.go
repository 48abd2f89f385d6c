package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artemshloyda/phototagger/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.SourceDirs = []string{t.TempDir()}
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestWatch_SignalsOnNewFile(t *testing.T) {
	cfg := newTestConfig(t)

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.SetDebounceTime(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	triggers, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Новый файл в исходной директории должен породить сигнал
	path := filepath.Join(cfg.SourceDirs[0], "photo.jpg")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case _, ok := <-triggers:
		if !ok {
			t.Fatal("канал закрылся вместо сигнала")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("сигнал о новом файле не пришёл")
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	cfg := newTestConfig(t)

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	triggers, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-triggers:
		if ok {
			t.Fatal("неожиданный сигнал после отмены")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("канал не закрылся после отмены контекста")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.SourceDirs = append(cfg.SourceDirs, filepath.Join(cfg.SourceDirs[0], "no-such-dir"))

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := w.Watch(ctx); err == nil {
		t.Error("Watch() должен вернуть ошибку для несуществующей директории")
	}
}

func TestInteresting(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.SourceDirs = []string{srcDir}
	cfg.OutputDir = outDir

	regular := filepath.Join(srcDir, "photo.jpg")
	if err := os.WriteFile(regular, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	subDir := filepath.Join(srcDir, "nested")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w := &Watcher{cfg: cfg}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"regular file", regular, true},
		{"dot file", filepath.Join(srcDir, ".phototagger.lock"), false},
		{"file in output dir", filepath.Join(outDir, "copy.jpg"), false},
		{"directory", subDir, false},
		{"missing file", filepath.Join(srcDir, "gone.jpg"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.interesting(tt.path); got != tt.want {
				t.Errorf("interesting(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
