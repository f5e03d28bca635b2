package storage

import (
	"path/filepath"
	"testing"

	"github.com/salahayoub/bonsai/pkg/engine"
)

func openTestStore(t *testing.T) *SettingsStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestLoadReturnsDefaultsForMissingNetwork verifies unsaved networks get defaults.
func TestLoadReturnsDefaultsForMissingNetwork(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Load(engine.Signet)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != DefaultNodeSettings() {
		t.Errorf("Expected defaults, got %+v", got)
	}
}

// TestSaveAndLoad verifies settings survive a reopen and stay per network.
func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	want := DefaultNodeSettings()
	want.Backfill = false
	want.UserAgent = "/bonsai:test/"
	want.FixedPeer = "10.0.0.2:38333"
	want.MaxOutbound = 12
	want.MaxBanScore = 4294967295

	if err := store.Save(engine.Signet, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()

	got, err := store.Load(engine.Signet)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != want {
		t.Errorf("Round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}

	other, _ := store.Load(engine.Regtest)
	if other != DefaultNodeSettings() {
		t.Errorf("Signet settings leaked into regtest: %+v", other)
	}

	nets, err := store.Networks()
	if err != nil || len(nets) != 1 || nets[0] != engine.Signet {
		t.Errorf("Expected [signet], got %v (%v)", nets, err)
	}
}

// TestSaveRejectsInvalidSettings verifies validation runs before writing.
func TestSaveRejectsInvalidSettings(t *testing.T) {
	store := openTestStore(t)
	s := DefaultNodeSettings()
	s.Proxy = "localhost"

	if err := store.Save(engine.Bitcoin, s); err == nil {
		t.Fatal("Expected invalid proxy to be rejected")
	}
	if nets, _ := store.Networks(); len(nets) != 0 {
		t.Errorf("Invalid settings were written: %v", nets)
	}
}

// TestSelectedNetwork verifies the network selection round trip.
func TestSelectedNetwork(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.SelectedNetwork(); ok || err != nil {
		t.Fatalf("Expected no selection, got ok=%v err=%v", ok, err)
	}
	if err := store.SelectNetwork(engine.Testnet4); err != nil {
		t.Fatalf("SelectNetwork failed: %v", err)
	}
	n, ok, err := store.SelectedNetwork()
	if err != nil || !ok || n != engine.Testnet4 {
		t.Errorf("Expected testnet4, got %v ok=%v err=%v", n, ok, err)
	}
}

// TestDelete verifies deleted settings fall back to defaults.
func TestDelete(t *testing.T) {
	store := openTestStore(t)
	s := DefaultNodeSettings()
	s.MaxInflight = 3
	if err := store.Save(engine.Regtest, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(engine.Regtest); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := store.Load(engine.Regtest); got.MaxInflight != 0 {
		t.Errorf("Expected defaults after delete, got %+v", got)
	}
}

// TestOpenLocked verifies a second open of a held database times out.
func TestOpenLocked(t *testing.T) {
	store := openTestStore(t)

	second, err := Open(store.Path())
	if err == nil {
		second.Close()
		t.Fatal("Expected second open to fail while the lock is held")
	}
}
