package service

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,6}$`)

// rolePattern keeps role names within roles.name and free of the list separator.
var rolePattern = regexp.MustCompile(`^ROLE_[A-Z0-9_]{1,59}$`)

const passwordSpecials = "!@#$%^&*(),.?\":{}|<>"

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// strongPassword requires at least 8 characters, one ASCII uppercase letter
// and one character from passwordSpecials.
func strongPassword(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var upper, special bool
	for _, r := range password {
		switch {
		case r <= unicode.MaxASCII && unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && special
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

// withTx runs fn inside a transaction. Without a database (in-memory
// repositories) fn receives a nil tx.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	if db == nil {
		return fn(nil)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
