package service

import "errors"

// Error kinds. Every error returned by the order services for a caller
// mistake wraps exactly one of these; handlers map them to HTTP statuses.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func notFound(msg string) error   { return &kindError{kind: ErrNotFound, msg: msg} }
func forbidden(msg string) error  { return &kindError{kind: ErrForbidden, msg: msg} }
func badRequest(msg string) error { return &kindError{kind: ErrBadRequest, msg: msg} }
func conflict(msg string) error   { return &kindError{kind: ErrConflict, msg: msg} }

// Errors returned by the order services.
var (
	ErrRestaurantNotFound = notFound("restaurant not found")
	ErrSessionNotFound    = notFound("session not found")
	ErrBatchNotFound      = notFound("batch not found")
	ErrItemNotFound       = notFound("item not found")
	ErrBillNotFound       = notFound("bill not found")
	ErrTableNotFound      = notFound("table not found")
	ErrMenuItemNotFound   = notFound("menu item not found")

	ErrNotAuthenticated = forbidden("not authenticated")
	ErrAccessDenied     = forbidden("restaurant access denied")
	ErrRoleNotPermitted = forbidden("role not permitted for this operation")

	ErrInvalidStatus        = badRequest("invalid status")
	ErrInvalidTransition    = badRequest("invalid status transition")
	ErrInvalidChannel       = badRequest("invalid channel")
	ErrUnknownChannel       = badRequest("unknown subscription channel")
	ErrInvalidGuestCount    = badRequest("guest_count must be > 0")
	ErrTableInactive        = badRequest("table is not active")
	ErrSessionNotOpen       = badRequest("session is not open")
	ErrSessionClosed        = badRequest("session is closed")
	ErrEmptyBatch           = badRequest("items are required")
	ErrInvalidQuantity      = badRequest("quantity must be > 0")
	ErrMenuItemUnavailable  = badRequest("menu item is not available")
	ErrOutOfStock           = badRequest("menu item is out of stock")
	ErrCancelReasonRequired = badRequest("cancel_reason is required to cancel an item")
	ErrNothingToBill        = badRequest("session has no billable items")
	ErrInvalidDiscount      = badRequest("discount_amount must be a non-negative amount with at most 2 decimals")
	ErrInvalidAmount        = badRequest("amount must be a positive amount with at most 2 decimals")
	ErrInvalidMethod        = badRequest("invalid payment method")
	ErrOverpayment          = badRequest("amount exceeds remaining balance")
	ErrBillVoided           = badRequest("bill is voided")
	ErrBillAlreadyPaid      = badRequest("bill is already paid")
	ErrBalanceOutstanding   = badRequest("bill has an outstanding balance")

	ErrBillExists  = conflict("bill already exists for this session")
	ErrItemChanged = conflict("item status changed concurrently, reload and retry")
)
