package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	RoleSpecialist         UserRole = "SPECIALIST"
	RoleStudent            UserRole = "STUDENT"
	RoleInstitutionManager UserRole = "INSTITUTION_MANAGER"
)

const minPasswordLength = 8

var (
	ErrUnknownRole   = errors.New("unknown user role")
	ErrWeakPassword  = errors.New("password too short")
	ErrWrongPassword = errors.New("wrong password")
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleSpecialist, RoleStudent, RoleInstitutionManager:
		return true
	}
	return false
}

// ParseUserRole accepts the role name in any case
func ParseUserRole(raw string) (UserRole, error) {
	r := UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return r, nil
}

// Preferences are per-user UI settings
type Preferences struct {
	DarkMode bool `json:"dark_mode" bson:"dark_mode"`
}

// User is an account owned by the auth service
type User struct {
	ID           string      `json:"id" bson:"_id"`
	Name         string      `json:"name" bson:"name"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"-" bson:"password_hash"`
	Role         UserRole    `json:"role" bson:"role"`
	Preferences  Preferences `json:"preferences" bson:"preferences"`

	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

// SetPassword stores the bcrypt hash of password
func (u *User) SetPassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: minimum is %d characters", ErrWeakPassword, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares password against the stored hash
func (u *User) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// AuthSession is a login issued by the auth service. The token carries its ID.
type AuthSession struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}
