package db

import "strings"

// IsUniqueViolation reports whether err looks like a postgres unique
// violation. Pass a constraint name to match one index specifically, e.g.
// the users email or cart token uniques; otherwise any duplicate-key error
// matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
