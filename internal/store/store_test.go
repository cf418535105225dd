package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spec-kit/faceauth-service/internal/domain"
)

func TestStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	env := domain.Envelope{
		Token:           "face_auth_170000_m42",
		SubjectProfile:  &domain.SubjectProfile{ID: "m42", Name: "Sana"},
		IsAuthenticated: true,
	}
	if err := s.Put(ctx, domain.RoleManager, env); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := s.Get(ctx, domain.RoleManager)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Token != env.Token || got.SubjectProfile.Name != "Sana" || !got.IsAuthenticated {
		t.Fatalf("unexpected envelope %+v", got)
	}

	if _, err := s.Get(ctx, domain.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for admin, got %v", err)
	}
}

func TestStorePutRejectsEmptyToken(t *testing.T) {
	s := NewMemory()
	if err := s.Put(context.Background(), domain.RoleAdmin, domain.Envelope{IsAuthenticated: true}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestStoreUnknownRole(t *testing.T) {
	s := NewMemory()
	if _, err := s.Get(context.Background(), domain.Role("employee")); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestStoreClearAllRemovesLegacyKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := New(kv)

	_ = s.Put(ctx, domain.RoleAdmin, domain.Envelope{Token: "eyJadmin", IsAuthenticated: true})
	_ = s.Put(ctx, domain.RoleManager, domain.Envelope{Token: "eyJmanager", IsAuthenticated: true})
	_ = s.SetLegacyToken(ctx, domain.RoleAdmin, "eyJstale")
	_ = s.SetLegacyToken(ctx, domain.RoleManager, "eyJstale2")
	_ = s.SetDisplayName(ctx, domain.RoleManager, "Sana")
	_ = kv.Set(ctx, KeyUserPhoto, []byte("https://cdn/p.jpg"))

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}

	for _, key := range AllKeys {
		if _, ok, _ := kv.Get(ctx, key); ok {
			t.Errorf("key %s survived ClearAll", key)
		}
	}
	if tok, _ := s.LegacyToken(ctx, domain.RoleAdmin); tok != "" {
		t.Fatalf("expected empty legacy token, got %q", tok)
	}
}

func TestFileKVPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds", "store.json")

	kv, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("NewFileKV() error: %v", err)
	}
	if err := New(kv).Put(ctx, domain.RoleAdmin, domain.Envelope{Token: "eyJa", IsAuthenticated: true}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	kv2, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("NewFileKV() second error: %v", err)
	}
	got, err := New(kv2).Get(ctx, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Token != "eyJa" {
		t.Fatalf("expected token eyJa, got %q", got.Token)
	}

	if err := New(kv2).ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}
	kv3, _ := NewFileKV(path)
	if _, err := New(kv3).Get(ctx, domain.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestNewFileKVRequiresPath(t *testing.T) {
	if _, err := NewFileKV("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestFileKVLoadsNullFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("null"), 0o600); err != nil {
		t.Fatalf("write store file: %v", err)
	}

	kv, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("NewFileKV() error: %v", err)
	}
	if err := kv.Set(ctx, KeyAdminEnvelope, []byte(`{"token":"eyJa","isAuthenticated":true}`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, KeyAdminEnvelope); !ok {
		t.Fatalf("value not stored")
	}
}

func TestFileKVFailedWriteKeepsMemoryAndDiskInSync(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	kv, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("NewFileKV() error: %v", err)
	}
	s := New(kv)
	if err := s.Put(ctx, domain.RoleAdmin, domain.Envelope{Token: "eyJa", IsAuthenticated: true}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	// A directory where the temp file should go makes every write fail.
	if err := os.Mkdir(path+".tmp", 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := s.ClearAll(ctx); err == nil {
		t.Fatalf("expected ClearAll to fail")
	}
	if err := s.Put(ctx, domain.RoleManager, domain.Envelope{Token: "eyJm", IsAuthenticated: true}); err == nil {
		t.Fatalf("expected Put to fail")
	}

	if got, err := s.Get(ctx, domain.RoleAdmin); err != nil || got.Token != "eyJa" {
		t.Fatalf("admin envelope lost after failed clear: %+v, %v", got, err)
	}
	if _, err := s.Get(ctx, domain.RoleManager); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed Put must not be visible, got %v", err)
	}

	reopened, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, err := New(reopened).Get(ctx, domain.RoleAdmin); err != nil || got.Token != "eyJa" {
		t.Fatalf("disk disagrees with memory: %+v, %v", got, err)
	}
}
