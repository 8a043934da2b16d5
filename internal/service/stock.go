package service

import (
	"context"
	"fmt"
	"log"
)

// ResetNonTrackableStock clears the out-of-stock flag on items that do not
// track a quantity. It is idempotent and meant to be run by a scheduler once
// a day.
func (s *OrderService) ResetNonTrackableStock(ctx context.Context) (int64, error) {
	n, err := s.store.ResetNonTrackableOutOfStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset out-of-stock flags: %w", err)
	}
	log.Printf("reset out-of-stock flag on %d menu items", n)
	return n, nil
}
