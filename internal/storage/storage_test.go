package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func exerciseStore(t *testing.T, s KeyValue) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "cities"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	first := []byte(`[{"id":"a","cityName":"Paris"}]`)
	if err := s.Set(ctx, "cities", first); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	second := []byte(`[{"id":"a","cityName":"Paris"},{"id":"b","cityName":"Oslo"}]`)
	if err := s.Set(ctx, "cities", second); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "cities")
	if err != nil || !ok {
		t.Fatalf("expected stored key, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("expected %s, got %s", second, got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "defaults.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	exerciseStore(t, s)

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, ok, _ := reopened.Get(context.Background(), "cities"); !ok {
		t.Fatal("expected value to survive reopening")
	}
}

func TestFileStoreKeepsBinaryValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "defaults.json")
	blob := []byte{0xff, 0xfe, 0x00, 'a', 0xc3}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s.Set(ctx, "blob", blob); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, ok, err := reopened.Get(ctx, "blob")
	if err != nil || !ok {
		t.Fatalf("expected stored key, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatalf("expected %x, got %x", blob, got)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "cities"); err == nil {
		t.Fatal("expected an error for a corrupt store file")
	}
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "favorites.db")

	s, err := NewSQLStore(context.Background(), DialectSQLite, dbPath)
	if err != nil {
		t.Fatalf("NewSQLStore failed: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)

	if !mr.Exists(redisKeyPrefix + "cities") {
		t.Fatal("expected prefixed key in redis")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Config{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
