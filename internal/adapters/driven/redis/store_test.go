package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
)

// setupTestRedis creates a miniredis server and a client against it
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestKeyValueStore_StringRoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewKeyValueStore(client)
	ctx := context.Background()

	if err := store.PutString(ctx, "base_url", "https://broker.example.com"); err != nil {
		t.Fatalf("unexpected error putting string: %v", err)
	}

	val, err := store.GetString(ctx, "base_url")
	if err != nil {
		t.Fatalf("unexpected error getting string: %v", err)
	}
	if val != "https://broker.example.com" {
		t.Errorf("expected https://broker.example.com, got %s", val)
	}
}

func TestKeyValueStore_MissingStringIsZero(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewKeyValueStore(client)

	val, err := store.GetString(context.Background(), "never_written")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "" {
		t.Errorf("expected empty string for missing key, got %q", val)
	}
}

func TestKeyValueStore_BoolRoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewKeyValueStore(client)
	ctx := context.Background()

	if err := store.PutBool(ctx, "hide_branding", true); err != nil {
		t.Fatalf("unexpected error putting bool: %v", err)
	}

	val, err := store.GetBool(ctx, "hide_branding")
	if err != nil {
		t.Fatalf("unexpected error getting bool: %v", err)
	}
	if !val {
		t.Error("expected true")
	}
}

func TestKeyValueStore_MissingBoolIsZero(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewKeyValueStore(client)

	val, err := store.GetBool(context.Background(), "never_written")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val {
		t.Error("expected false for missing key")
	}
}

func TestKeyValueStore_NonBooleanValue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewKeyValueStore(client)
	ctx := context.Background()

	if err := store.PutString(ctx, "flag", "not-a-bool"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetBool(ctx, "flag"); err == nil {
		t.Error("expected error reading a non-boolean value")
	}
}

func TestObjectStore_RoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewObjectStore(client)
	ctx := context.Background()

	saved := map[string]*domain.Credential{
		"facebook": {ProviderID: "facebook", DeviceToken: "tok-1"},
	}
	if err := store.Save(ctx, "credentials", saved); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	var loaded map[string]*domain.Credential
	if err := store.Load(ctx, "credentials", &loaded); err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}

	if len(loaded) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(loaded))
	}
	if loaded["facebook"].DeviceToken != "tok-1" {
		t.Errorf("expected device token tok-1, got %s", loaded["facebook"].DeviceToken)
	}
}

func TestObjectStore_MissingNameLeavesOutUntouched(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewObjectStore(client)

	loaded := map[string]*domain.Credential{
		"sentinel": {ProviderID: "sentinel"},
	}
	if err := store.Load(context.Background(), "never_saved", &loaded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := loaded["sentinel"]; !ok {
		t.Error("expected out value to be untouched for a missing name")
	}
}

func TestObjectStore_OverwriteReplacesBlob(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewObjectStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "providers", []string{"facebook", "twitter"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "providers", []string{"google"}); err != nil {
		t.Fatal(err)
	}

	var loaded []string
	if err := store.Load(ctx, "providers", &loaded); err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0] != "google" {
		t.Errorf("expected [google], got %v", loaded)
	}
}
