package core

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"campuslife/internal/infra/persistence/memory"
)

func TestOpenStoreMemory(t *testing.T) {
	t.Setenv(EnvStorageDriver, "memory")
	store, err := OpenStore(context.Background(), nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("store type = %T", store)
	}
}

func TestOpenStoreDefaultsToSQLite(t *testing.T) {
	t.Setenv(EnvStorageDriver, "")
	t.Setenv(EnvSQLitePath, filepath.Join(t.TempDir(), "campuslife.db"))
	store, err := OpenStore(context.Background(), nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	closer, ok := store.(io.Closer)
	if !ok {
		t.Fatalf("sqlite store does not close: %T", store)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	t.Setenv(EnvStorageDriver, "filing-cabinet")
	if _, err := OpenStore(context.Background(), nil); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
