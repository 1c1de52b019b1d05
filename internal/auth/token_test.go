package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	ts := NewTokenService(testSigningKey, 2*time.Hour)

	token, err := ts.Issue("maria")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	subject, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if subject != "maria" {
		t.Errorf("subject = %q, want %q", subject, "maria")
	}
}

func TestTokenService_ValidateRejectsTampering(t *testing.T) {
	ts := NewTokenService(testSigningKey, 2*time.Hour)

	token, err := ts.Issue("maria")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Flip a character in the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 JWT segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := ts.Validate(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate(tampered) error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenService_ValidateRejectsGarbage(t *testing.T) {
	ts := NewTokenService(testSigningKey, 2*time.Hour)

	inputs := []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c",
		"....",
	}
	for _, raw := range inputs {
		if _, err := ts.Validate(raw); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Validate(%q) error = %v, want ErrTokenInvalid", raw, err)
		}
	}
}

func TestTokenService_ValidateRejectsWrongKey(t *testing.T) {
	issuer := NewTokenService(testSigningKey, 2*time.Hour)
	other := NewTokenService([]byte("another-signing-key-32-bytes-ok!"), 2*time.Hour)

	token, err := issuer.Issue("maria")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := other.Validate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate(wrong key) error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenService_ValidateRejectsUnsignedAlg(t *testing.T) {
	ts := NewTokenService(testSigningKey, 2*time.Hour)

	// A token declaring "none" must never pass, even with a correct payload.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "maria",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	if _, err := ts.Validate(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate(alg=none) error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	window := 2 * time.Hour

	// Clock starts at issuance, then moves where each case needs it.
	current := issued
	ts := NewTokenServiceWithClock(testSigningKey, window, func() time.Time { return current })

	token, err := ts.Issue("maria")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name    string
		at      time.Time
		wantErr bool
	}{
		{
			name:    "just inside the window",
			at:      issued.Add(window - time.Second),
			wantErr: false,
		},
		{
			name:    "exactly at expiry is expired",
			at:      issued.Add(window),
			wantErr: true,
		},
		{
			name:    "past expiry",
			at:      issued.Add(window + time.Minute),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current = tt.at
			_, err := ts.Validate(token)
			if tt.wantErr {
				if !errors.Is(err, ErrTokenInvalid) {
					t.Errorf("Validate() error = %v, want ErrTokenInvalid", err)
				}
			} else if err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestTokenService_Refresh(t *testing.T) {
	issued := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	current := issued
	ts := NewTokenServiceWithClock(testSigningKey, 2*time.Hour, func() time.Time { return current })

	token, err := ts.Issue("maria")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Refresh near the end of the window: the new token must carry a full
	// window from the refresh instant, not from the original issuance.
	current = issued.Add(2*time.Hour - time.Minute)
	refreshed, err := ts.Refresh(token)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Original expiry has passed; the refreshed token is still valid.
	current = issued.Add(2*time.Hour + time.Minute)
	subject, err := ts.Validate(refreshed)
	if err != nil {
		t.Fatalf("Validate(refreshed) error = %v", err)
	}
	if subject != "maria" {
		t.Errorf("subject = %q, want %q", subject, "maria")
	}

	if _, err := ts.Validate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("original token should be expired, got error = %v", err)
	}
}

func TestTokenService_RefreshRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	current := issued
	ts := NewTokenServiceWithClock(testSigningKey, 2*time.Hour, func() time.Time { return current })

	token, err := ts.Issue("maria")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	current = issued.Add(2 * time.Hour)
	if _, err := ts.Refresh(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(expired) error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenService_ConcurrentIssueValidate(t *testing.T) {
	ts := NewTokenService(testSigningKey, 2*time.Hour)

	const goroutines = 32
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := ts.Issue("maria")
			if err != nil {
				errs <- err
				return
			}
			if _, err := ts.Validate(token); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent issue/validate: %v", err)
	}
}

func TestTokenService_ConcurrentValidateSharedToken(t *testing.T) {
	issued := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	current := issued
	ts := NewTokenServiceWithClock(testSigningKey, 2*time.Hour, func() time.Time { return current })

	token, err := ts.Issue("maria")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	const goroutines = 32

	// Every caller validating the same live token must agree it is valid.
	current = issued.Add(time.Hour)
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subject, err := ts.Validate(token)
			if err != nil {
				errs <- err
				return
			}
			if subject != "maria" {
				errs <- errors.New("subject = " + subject + ", want maria")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent validate (live token): %v", err)
	}

	// Once expired, every caller must agree it is invalid.
	current = issued.Add(2*time.Hour + time.Minute)
	errs = make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ts.Validate(token); !errors.Is(err, ErrTokenInvalid) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent validate (expired token): error = %v, want ErrTokenInvalid", err)
	}
}
