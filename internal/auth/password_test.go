package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_ProducesBcryptDigest(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", testCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("expected bcrypt digest prefix, got %q", hash[:4])
	}

	if hash == "correct horse battery staple" {
		t.Error("digest must not equal the plaintext")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password", testCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("same password", testCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestHashPassword_InvalidCostFallsBack(t *testing.T) {
	hash, err := HashPassword("password", 99)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" {
		t.Error("expected a digest despite out-of-range cost")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret123", testCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		digest   string
		want     bool
		wantErr  bool
	}{
		{
			name:     "correct password",
			password: "secret123",
			digest:   hash,
			want:     true,
		},
		{
			name:     "wrong password",
			password: "secret124",
			digest:   hash,
			want:     false,
		},
		{
			name:     "empty password",
			password: "",
			digest:   hash,
			want:     false,
		},
		{
			name:     "malformed digest",
			password: "secret123",
			digest:   "not-a-bcrypt-digest",
			want:     false,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyPassword(tt.password, tt.digest)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
