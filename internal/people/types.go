// Package people manages the author and evaluator registries.
//
// Authors submit projects; evaluators review them. Both share the same
// personal-record shape and are stored in separate tables so foreign keys
// keep the two roles distinct.
package people

import (
	"errors"
	"time"
)

// Person is a personal record: an author or an evaluator.
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CPF       string    `json:"cpf"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required fields before persistence.
func (p *Person) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.CPF == "" {
		return errors.New("cpf is required")
	}
	return nil
}

// Sentinel errors for people operations.
var (
	ErrNotFound  = errors.New("person not found")
	ErrCPFExists = errors.New("cpf already registered")
)
