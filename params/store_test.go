package params

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"carprice/ml"
)

func TestFileStoreCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.txt")
	store := NewFileStore(path, ml.Coefficients{})

	c, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != (ml.Coefficients{}) {
		t.Fatalf("expected defaults, got %+v", c)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected params file to be created: %v", err)
	}
	if string(payload) != "0\n0" {
		t.Fatalf("unexpected file content %q", payload)
	}
}

func TestFileStoreSaveLoadReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "params.txt")
	defaults := ml.Coefficients{Theta0: 1, Theta1: 2}
	store := NewFileStore(path, defaults)

	want := ml.Coefficients{Theta0: 8499.599649933216, Theta1: -0.021448963591702314}
	if err := store.Save(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("expected reset of missing file to succeed: %v", err)
	}
	got, err = store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != defaults {
		t.Fatalf("expected defaults %+v after reset, got %+v", defaults, got)
	}
}

func TestFileStoreKeepsZeroCoefficient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.txt")
	store := NewFileStore(path, ml.Coefficients{Theta0: 7, Theta1: 7})
	if err := store.Save(ml.Coefficients{Theta0: 0, Theta1: 3}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Theta0 != 0 || got.Theta1 != 3 {
		t.Fatalf("expected stored zero to survive, got %+v", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ml.Coefficients
		wantErr bool
	}{
		{name: "two lines", input: "1.5\n-2", want: ml.Coefficients{Theta0: 1.5, Theta1: -2}},
		{name: "trailing newline", input: "0\n0\n", want: ml.Coefficients{}},
		{name: "python float repr", input: "8499.599649933216\n-0.021448963591702314", want: ml.Coefficients{Theta0: 8499.599649933216, Theta1: -0.021448963591702314}},
		{name: "exponent", input: "1e3 2.5e-05", want: ml.Coefficients{Theta0: 1000, Theta1: 0.000025}},
		{name: "single value", input: "1", wantErr: true},
		{name: "garbage", input: "a\nb", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(ml.Coefficients{Theta0: 4})
	if store.Stored() {
		t.Fatal("expected nothing stored yet")
	}
	c, _ := store.Load()
	if c.Theta0 != 4 || !store.Stored() {
		t.Fatalf("expected defaults to be created, got %+v", c)
	}
	_ = store.Save(ml.Coefficients{Theta0: 1, Theta1: 1})
	_ = store.Reset()
	if store.Stored() {
		t.Fatal("expected reset to remove the value")
	}
	c, _ = store.Load()
	if c != (ml.Coefficients{Theta0: 4}) {
		t.Fatalf("expected defaults after reset, got %+v", c)
	}
}

func TestOverride(t *testing.T) {
	store := NewMemoryStore(ml.Coefficients{})
	_ = store.Save(ml.Coefficients{Theta0: 10, Theta1: 20})

	zero := 0.0
	c, err := Override(store, nil, &zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != (ml.Coefficients{Theta0: 10, Theta1: 0}) {
		t.Fatalf("expected only theta1 replaced, got %+v", c)
	}

	five := 5.0
	c, _ = Override(store, &five, nil)
	if c != (ml.Coefficients{Theta0: 5, Theta1: 0}) {
		t.Fatalf("expected only theta0 replaced, got %+v", c)
	}
	stored, _ := store.Load()
	if stored != c {
		t.Fatalf("expected override to be saved, got %+v", stored)
	}
}

func TestWatcherReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.txt")
	store := NewFileStore(path, ml.Coefficients{})
	if _, err := store.Load(); err != nil {
		t.Fatal(err)
	}

	changes := make(chan ml.Coefficients, 8)
	watcher, err := NewWatcher(path, store, nil, func(c ml.Coefficients) { changes <- c })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	want := ml.Coefficients{Theta0: 3, Theta1: -1}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c == want {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for reload")
		}
	}
}
