package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/persistence/middleware"
	"github.com/aretw0/agentgraph/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypted(t *testing.T, next ports.Checkpointer, cfg middleware.EncryptionConfig) ports.Checkpointer {
	t.Helper()
	mw, err := middleware.NewEncryption(cfg)
	if err != nil {
		t.Fatalf("NewEncryption: %v", err)
	}
	return mw(next)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	state := domain.NewState("t1")
	state.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("my card is 4111")}})
	state.Status = domain.StatusRunning
	state.Next = "agent"

	if err := secure.Save(ctx, "t1", state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlying.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.Messages) != 1 || stored.Messages[0].Name != middleware.EnvelopeName {
		t.Fatalf("Expected a single envelope message, got %+v", stored.Messages)
	}
	if stored.Next != "" {
		t.Errorf("Expected Next to be hidden, got %q", stored.Next)
	}
	if stored.Status != domain.StatusRunning {
		t.Errorf("Expected status to stay visible, got %q", stored.Status)
	}

	loaded, err := secure.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Next != "agent" || len(loaded.Messages) != 1 {
		t.Fatalf("Unexpected decrypted state: %+v", loaded)
	}
	if loaded.Messages[0].Content != "my card is 4111" {
		t.Errorf("Expected original content, got %v", loaded.Messages[0].Content)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	state := domain.NewState("rot")
	state.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("old")}})
	if err := oldStore.Save(ctx, "rot", state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	newStore := encrypted(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, "rot")
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}

	loaded.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("new")}})
	if err := newStore.Save(ctx, "rot", loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := oldStore.Load(ctx, "rot"); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_PlainSnapshot(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	if err := underlying.Save(ctx, "plain", domain.NewState("plain")); err != nil {
		t.Fatal(err)
	}

	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(ctx, "plain")
	if !errors.Is(err, middleware.ErrMissingEnvelope) {
		t.Errorf("Expected ErrMissingEnvelope, got %v", err)
	}

	_, err = secure.Load(ctx, "absent")
	if !errors.Is(err, domain.ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if string(got) != string(key) {
		t.Error("DecodeKey returned different bytes")
	}

	if _, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("Expected length error")
	}
	if _, err := middleware.DecodeKey("not base64!"); err == nil {
		t.Error("Expected decode error")
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunCheckpointerContract(t, encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}
