package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAPIKeyHashRoundTrip(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}

	hash, err := HashAPIKey(key, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}

	if !CheckAPIKey(key, []string{hash}) {
		t.Error("generated key does not verify against its own hash")
	}
	if CheckAPIKey("wrong-key", []string{hash}) {
		t.Error("wrong key verified against the hash")
	}
	if CheckAPIKey(key, nil) {
		t.Error("key verified against an empty hash list")
	}
}

func TestCheckAPIKeyMultipleHashes(t *testing.T) {
	first, err := HashAPIKey("key-one", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	second, err := HashAPIKey("key-two", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}

	hashes := []string{first, second}
	if !CheckAPIKey("key-two", hashes) {
		t.Error("key matching the second hash was rejected")
	}
	if CheckAPIKey("key-three", hashes) {
		t.Error("unknown key accepted")
	}
}

func TestGenerateAPIKeyCharset(t *testing.T) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	for _, r := range key {
		if !strings.ContainsRune(charset, r) {
			t.Fatalf("key contains unexpected character %q", r)
		}
	}

	other, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if key == other {
		t.Error("two generated keys are identical")
	}
}
