package crypto

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// HashToken Tests
// ============================================================

func TestHashToken(t *testing.T) {
	hash, err := HashToken("my-secret-token")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	if hash == "" {
		t.Fatal("HashToken returned empty hash")
	}
	if hash == "my-secret-token" {
		t.Error("hash must not equal the token")
	}
	// bcrypt хэши начинаются с $2
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("unexpected hash format: %s", hash)
	}
}

func TestHashToken_Empty(t *testing.T) {
	_, err := HashToken("")
	if !errors.Is(err, ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %v", err)
	}
}

func TestHashToken_TooLong(t *testing.T) {
	_, err := HashToken(strings.Repeat("a", 73))
	if !errors.Is(err, ErrTokenTooLong) {
		t.Errorf("expected ErrTokenTooLong, got %v", err)
	}
}

func TestHashToken_Unique(t *testing.T) {
	// Одинаковые токены должны давать разные хэши (случайная соль)
	h1, err := HashToken("token")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	h2, err := HashToken("token")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same token should differ")
	}
}

// ============================================================
// VerifyToken Tests
// ============================================================

func TestVerifyToken(t *testing.T) {
	hash, err := HashToken("correct-token")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		hash    string
		wantErr error
	}{
		{"valid token", "correct-token", hash, nil},
		{"wrong token", "wrong-token", hash, ErrTokenMismatch},
		{"empty token", "", hash, ErrEmptyToken},
		{"empty hash", "correct-token", "", ErrInvalidHash},
		{"garbage hash", "correct-token", "not-a-hash", ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyToken(tt.token, tt.hash)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
