// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest message, in runes, the CLI accepts.
const MaxMessageLength = 4000

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// SessionID validates a session identifier. IDs double as file names, so
// only letters, digits, '-' and '_' are allowed.
func SessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id %q: use letters, digits, '-' or '_' (max 64)", id)
	}
	return nil
}

// Email validates a participant identifier.
func Email(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}

// MessageText validates text typed for sending.
func MessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message is empty")
	}
	if n := utf8.RuneCountInString(text); n > MaxMessageLength {
		return fmt.Errorf("message is %d characters, limit is %d", n, MaxMessageLength)
	}
	return nil
}
