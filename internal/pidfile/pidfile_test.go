package pidfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "daybook.pid"))

	if err := f.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	data, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("read pidfile: %v", err)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("pidfile contains %q, want own pid", data)
	}

	if err := f.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(f.Path()); !os.IsNotExist(err) {
		t.Error("pidfile survived Release")
	}
	if err := f.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestAcquireRefusesLiveOwner(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "daybook.pid"))

	// The current process is definitely alive.
	if err := f.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := f.Acquire(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Acquire = %v, want ErrAlreadyRunning", err)
	}
}

func TestAcquireReclaimsStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daybook.pid")

	// A pid far beyond pid_max cannot belong to a live process.
	if err := os.WriteFile(path, []byte("99999999"), 0644); err != nil {
		t.Fatal(err)
	}

	f := New(path)
	if err := f.Acquire(); err != nil {
		t.Fatalf("Acquire over stale file: %v", err)
	}
}

func TestAcquireIgnoresGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daybook.pid")
	if err := os.WriteFile(path, []byte("not a pid"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New(path).Acquire(); err != nil {
		t.Fatalf("Acquire over garbage file: %v", err)
	}
}
