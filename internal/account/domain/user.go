package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the most bcrypt will hash.
	MaxPasswordBytes = 72
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email taken")
	ErrNoSession  = errors.New("no session")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AcceptTerms  bool      `json:"acceptTerms"`
	Wishlist     []string  `json:"wishlist"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Registration struct {
	Username    string
	Email       string
	Password    string
	AcceptTerms bool
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return apperr.Validation("All fields are required!", "username", "email", "password")
	}
	if !r.AcceptTerms {
		return apperr.Validation("You must accept the terms and conditions!", "acceptTerms")
	}
	return validateCredentials(r.Email, r.Password)
}

type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return apperr.Validation("All fields are required!", "email", "password")
	}
	return validateCredentials(c.Email, c.Password)
}

func validateCredentials(email, password string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return apperr.Validation("Invalid email format", "email")
	}
	if len(password) < MinPasswordLength {
		return apperr.Validation("Password must be at least 8 characters long", "password")
	}
	if len(password) > MaxPasswordBytes {
		return apperr.Validation("Password must be at most 72 bytes long", "password")
	}
	return nil
}
