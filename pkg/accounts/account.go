package accounts

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StatusActive marks an account as usable by the pool; anything else is
// skipped at load time (banned, needs_captcha, ...)
const StatusActive = "active"

// Account is one upstream credential. Secret material never leaves this
// package unmasked; the session token is persisted separately, encrypted.
type Account struct {
	Username  string `yaml:"username" json:"username"`
	Email     string `yaml:"email" json:"email"`
	Password  string `yaml:"password" json:"-"`
	UserAgent string `yaml:"user_agent" json:"user_agent,omitempty"`
	Status    string `yaml:"status" json:"status"`

	// SessionToken is the opaque persisted session blob, refreshed in
	// place after a successful login. Not part of the accounts file.
	SessionToken string `yaml:"-" json:"-"`
}

// Errors
var (
	ErrUnavailable = errors.New("no eligible account available")
	ErrNoAccounts  = errors.New("no active accounts configured")
)

// LoadAccounts reads the accounts file and returns the active accounts in
// file order. The order is the pool's fixed rotation order.
func LoadAccounts(path string) ([]*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var all []*Account
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}

	var active []*Account
	for i, acct := range all {
		if acct.Username == "" || acct.Password == "" {
			return nil, fmt.Errorf("account %d is missing username or password", i)
		}
		if acct.Status == StatusActive {
			active = append(active, acct)
		}
	}

	if len(active) == 0 {
		return nil, ErrNoAccounts
	}

	return active, nil
}

// Masked returns a copy of the account safe for display and logging
func (a *Account) Masked() *Account {
	return &Account{
		Username:  a.Username,
		Email:     maskString(a.Email),
		Password:  "********",
		UserAgent: a.UserAgent,
		Status:    a.Status,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
