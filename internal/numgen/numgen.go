// Package numgen mints short human-facing identifiers (session, batch and
// bill numbers). Uniqueness is checked against the store and enforced by a
// unique constraint; callers retry the whole transaction on a collision.
package numgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgconn"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Lengths for each kind of number.
const (
	SessionLength = 6
	BatchLength   = 4
	BillLength    = 8
	BillPrefix    = "INV-"
)

// MaxAttempts bounds both the candidate loop and the caller's transaction retry.
const MaxAttempts = 5

// ErrExhausted means every candidate collided.
var ErrExhausted = errors.New("could not generate a unique number")

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// Generate returns a random uppercase alphanumeric string of length n.
func Generate(n int) (string, error) {
	base := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

// ExistsFunc reports whether a candidate is already taken in its scope.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Mint generates candidates with gen until exists reports a free one.
func Mint(ctx context.Context, gen func() (string, error), exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		candidate, err := gen()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}

func SessionNumber() (string, error) { return Generate(SessionLength) }

func BatchNumber() (string, error) { return Generate(BatchLength) }

func BillNumber() (string, error) {
	s, err := Generate(BillLength)
	if err != nil {
		return "", err
	}
	return BillPrefix + s, nil
}

// IsUniqueViolation checks for a unique constraint violation (23505) on the
// named constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// Retry runs fn until it succeeds or fails with something other than a
// unique violation on one of constraints.
func Retry(ctx context.Context, fn func(ctx context.Context) error, constraints ...string) error {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isAnyViolation(err, constraints) {
			return err
		}
	}
	return ErrExhausted
}

func isAnyViolation(err error, constraints []string) bool {
	for _, c := range constraints {
		if IsUniqueViolation(err, c) {
			return true
		}
	}
	return false
}
