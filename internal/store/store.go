// Package store executes assistant-generated statements against the business
// data store.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/partnerdesk/internal/domain"
	"github.com/ashureev/partnerdesk/internal/shared"
)

// Executor runs a single statement and normalizes its result.
type Executor interface {
	// Execute runs statement verbatim. Failures are returned as *StatementError.
	Execute(ctx context.Context, statement string) (*domain.QueryResult, error)
}

// Repository is an Executor with connection lifecycle management.
type Repository interface {
	Executor

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Policy restricts which statements may reach the store.
type Policy string

const (
	// PolicyUnrestricted runs any statement the store accepts, including writes.
	PolicyUnrestricted Policy = "unrestricted"
	// PolicyReadOnly only runs row-returning statements.
	PolicyReadOnly Policy = "read-only"
)

// ParsePolicy validates a configured policy name. Empty means unrestricted.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyUnrestricted:
		return PolicyUnrestricted, nil
	case PolicyReadOnly:
		return PolicyReadOnly, nil
	default:
		return "", fmt.Errorf("unknown statement policy %q", s)
	}
}

var (
	// ErrEmptyStatement is returned for blank statements.
	ErrEmptyStatement = errors.New("empty statement")
	// ErrStatementNotAllowed is returned when the policy rejects a statement.
	ErrStatementNotAllowed = errors.New("statement not allowed by read-only policy")
)

// StatementError reports a statement that could not be executed.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return "execute statement: " + e.Message()
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// Message returns the driver's error text, suitable for showing to the caller.
func (e *StatementError) Message() string {
	return shared.DriverMessage(e.Err)
}
