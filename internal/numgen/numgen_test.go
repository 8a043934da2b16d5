package numgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	for _, n := range []int{SessionLength, BatchLength, BillLength} {
		s, err := Generate(n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s) != n {
			t.Errorf("expected length %d, got %q", n, s)
		}
		for _, r := range s {
			if !strings.ContainsRune(alphabet, r) {
				t.Errorf("unexpected rune %q in %q", r, s)
			}
		}
	}
}

func TestBillNumber_Prefix(t *testing.T) {
	s, err := BillNumber()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(s, BillPrefix) || len(s) != len(BillPrefix)+BillLength {
		t.Errorf("unexpected bill number %q", s)
	}
}

func TestMint_SkipsTakenCandidates(t *testing.T) {
	candidates := []string{"AAAA", "BBBB", "CCCC"}
	i := 0
	gen := func() (string, error) {
		c := candidates[i]
		i++
		return c, nil
	}
	taken := map[string]bool{"AAAA": true, "BBBB": true}
	got, err := Mint(context.Background(), gen, func(ctx context.Context, c string) (bool, error) {
		return taken[c], nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "CCCC" {
		t.Errorf("expected CCCC, got %s", got)
	}
}

func TestMint_Exhausted(t *testing.T) {
	_, err := Mint(context.Background(), func() (string, error) { return "AAAA", nil },
		func(ctx context.Context, c string) (bool, error) { return true, nil })
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestMint_ExistsError(t *testing.T) {
	dbErr := errors.New("connection refused")
	_, err := Mint(context.Background(), func() (string, error) { return "AAAA", nil },
		func(ctx context.Context, c string) (bool, error) { return false, dbErr })
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "bills_restaurant_id_bill_number_key"}
	wrapped := fmt.Errorf("create bill: %w", pgErr)

	if !IsUniqueViolation(wrapped, "bills_restaurant_id_bill_number_key") {
		t.Error("expected match on constraint name")
	}
	if IsUniqueViolation(wrapped, "bills_session_id_key") {
		t.Error("expected no match on other constraint")
	}
	if !IsUniqueViolation(wrapped, "") {
		t.Error("empty constraint should match any unique violation")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Error("plain error is not a unique violation")
	}
}

func TestRetry_RetriesOnlyNamedConstraint(t *testing.T) {
	const constraint = "order_batches_session_id_batch_number_key"
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
		}
		return nil
	}, constraint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	other := &pgconn.PgError{Code: "23505", ConstraintName: "bills_session_id_key"}
	calls = 0
	err = Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return other
	}, constraint)
	if !errors.Is(err, other) || calls != 1 {
		t.Errorf("expected single call returning other violation, got calls=%d err=%v", calls, err)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	const constraint = "order_sessions_restaurant_id_session_number_key"
	err := Retry(context.Background(), func(ctx context.Context) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
	}, constraint)
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}
