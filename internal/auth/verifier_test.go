package auth

import (
	"context"
	"errors"
	"testing"
)

// failingStore simulates an unreachable credential store.
type failingStore struct{}

func (failingStore) Create(context.Context, *Credential) error { return errors.New("db gone") }
func (failingStore) GetByUsername(context.Context, string) (*Credential, error) {
	return nil, errors.New("db gone")
}
func (failingStore) Count(context.Context) (int, error) { return 0, errors.New("db gone") }

func registerTestUser(t *testing.T, v *Verifier, username, password string) *Credential {
	t.Helper()
	cred, err := v.Register(context.Background(), username, password, "aut-12345678")
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
	return cred
}

func TestVerifier_Authenticate(t *testing.T) {
	v := NewVerifier(NewCredentialStore(testDB(t)), testCost)
	registerTestUser(t, v, "maria", "s3cret!")
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		p, err := v.Authenticate(ctx, "maria", "s3cret!")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if p.Username != "maria" {
			t.Errorf("Username = %q, want %q", p.Username, "maria")
		}
		if len(p.Authorities) != 1 || p.Authorities[0] != AuthorityUser {
			t.Errorf("Authorities = %v, want [%s]", p.Authorities, AuthorityUser)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := v.Authenticate(ctx, "maria", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := v.Authenticate(ctx, "nobody", "s3cret!")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	// Unknown user and wrong password must be indistinguishable.
	t.Run("uniform failure", func(t *testing.T) {
		_, errUser := v.Authenticate(ctx, "nobody", "s3cret!")
		_, errPass := v.Authenticate(ctx, "maria", "wrong")
		if errUser.Error() != errPass.Error() {
			t.Errorf("failure messages differ: %q vs %q", errUser, errPass)
		}
	})
}

func TestVerifier_Authenticate_StoreUnavailable(t *testing.T) {
	v := NewVerifier(failingStore{}, testCost)

	_, err := v.Authenticate(context.Background(), "maria", "s3cret!")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("store failure must not look like bad credentials")
	}
}

func TestVerifier_Register(t *testing.T) {
	v := NewVerifier(NewCredentialStore(testDB(t)), testCost)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		cred, err := v.Register(ctx, "joao", "pass123", "aut-1")
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if cred.ID == "" {
			t.Error("expected generated ID")
		}
		if cred.PasswordHash == "pass123" {
			t.Error("password must be hashed before storage")
		}

		// The new credential authenticates immediately.
		if _, err := v.Authenticate(ctx, "joao", "pass123"); err != nil {
			t.Errorf("Authenticate(new user) error = %v", err)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := v.Register(ctx, "joao", "other", "aut-2")
		if !errors.Is(err, ErrUsernameExists) {
			t.Errorf("error = %v, want ErrUsernameExists", err)
		}
	})

	t.Run("empty fields", func(t *testing.T) {
		cases := []struct{ username, password, personRef string }{
			{"", "pass", "aut-1"},
			{"user", "", "aut-1"},
			{"user", "pass", ""},
		}
		for _, c := range cases {
			_, err := v.Register(ctx, c.username, c.password, c.personRef)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Register(%q,%q,%q) error = %v, want ErrValidation",
					c.username, c.password, c.personRef, err)
			}
		}
	})

	t.Run("malformed username", func(t *testing.T) {
		_, err := v.Register(ctx, "has spaces!", "pass", "aut-1")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}
