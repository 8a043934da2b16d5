package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type SessionStatus string

const (
	SessionStatusOPEN      SessionStatus = "OPEN"
	SessionStatusBILLED    SessionStatus = "BILLED"
	SessionStatusPAID      SessionStatus = "PAID"
	SessionStatusCANCELLED SessionStatus = "CANCELLED"
	SessionStatusVOID      SessionStatus = "VOID"
)

func (e *SessionStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = SessionStatus(s)
	case string:
		*e = SessionStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for SessionStatus: %T", src)
	}
	return nil
}

type NullSessionStatus struct {
	SessionStatus SessionStatus
	Valid         bool
}

type SessionChannel string

const (
	SessionChannelDINEIN    SessionChannel = "DINE_IN"
	SessionChannelONLINEOWN SessionChannel = "ONLINE_OWN"
	SessionChannelUBEREATS  SessionChannel = "UBER_EATS"
)

func (e *SessionChannel) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = SessionChannel(s)
	case string:
		*e = SessionChannel(s)
	default:
		return fmt.Errorf("unsupported scan type for SessionChannel: %T", src)
	}
	return nil
}

type BatchStatus string

const (
	BatchStatusPENDING    BatchStatus = "PENDING"
	BatchStatusINPROGRESS BatchStatus = "IN_PROGRESS"
	BatchStatusREADY      BatchStatus = "READY"
	BatchStatusSERVED     BatchStatus = "SERVED"
)

func (e *BatchStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = BatchStatus(s)
	case string:
		*e = BatchStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for BatchStatus: %T", src)
	}
	return nil
}

type ItemStatus string

const (
	ItemStatusPENDING   ItemStatus = "PENDING"
	ItemStatusPREPARING ItemStatus = "PREPARING"
	ItemStatusPREPARED  ItemStatus = "PREPARED"
	ItemStatusSERVED    ItemStatus = "SERVED"
	ItemStatusCANCELLED ItemStatus = "CANCELLED"
)

func (e *ItemStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = ItemStatus(s)
	case string:
		*e = ItemStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for ItemStatus: %T", src)
	}
	return nil
}

type BillStatus string

const (
	BillStatusUNPAID BillStatus = "UNPAID"
	BillStatusPAID   BillStatus = "PAID"
	BillStatusVOIDED BillStatus = "VOIDED"
)

func (e *BillStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = BillStatus(s)
	case string:
		*e = BillStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for BillStatus: %T", src)
	}
	return nil
}

type TableStatus string

const (
	TableStatusAVAILABLE TableStatus = "AVAILABLE"
	TableStatusOCCUPIED  TableStatus = "OCCUPIED"
)

func (e *TableStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = TableStatus(s)
	case string:
		*e = TableStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for TableStatus: %T", src)
	}
	return nil
}

type PriceRuleType string

const (
	PriceRuleTypeRECURRINGWEEKLY PriceRuleType = "RECURRING_WEEKLY"
	PriceRuleTypeLIMITEDTIME     PriceRuleType = "LIMITED_TIME"
)

func (e *PriceRuleType) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PriceRuleType(s)
	case string:
		*e = PriceRuleType(s)
	default:
		return fmt.Errorf("unsupported scan type for PriceRuleType: %T", src)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodCASH         PaymentMethod = "CASH"
	PaymentMethodCARD         PaymentMethod = "CARD"
	PaymentMethodMOBILEWALLET PaymentMethod = "MOBILE_WALLET"
	PaymentMethodBANKTRANSFER PaymentMethod = "BANK_TRANSFER"
	PaymentMethodOTHER        PaymentMethod = "OTHER"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

type Restaurant struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	OwnerID   pgtype.UUID    `json:"owner_id"`
	TaxRate   pgtype.Numeric `json:"tax_rate"`
	Timezone  string         `json:"timezone"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type User struct {
	ID           uuid.UUID   `json:"id"`
	RestaurantID pgtype.UUID `json:"restaurant_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type DiningTable struct {
	ID           uuid.UUID   `json:"id"`
	RestaurantID uuid.UUID   `json:"restaurant_id"`
	Number       string      `json:"number"`
	Capacity     int32       `json:"capacity"`
	Status       TableStatus `json:"status"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type MenuItem struct {
	ID            uuid.UUID      `json:"id"`
	RestaurantID  uuid.UUID      `json:"restaurant_id"`
	Name          string         `json:"name"`
	Price         pgtype.Numeric `json:"price"`
	IsActive      bool           `json:"is_active"`
	IsAvailable   bool           `json:"is_available"`
	TrackStock    bool           `json:"track_stock"`
	StockQuantity pgtype.Int4    `json:"stock_quantity"`
	IsOutOfStock  bool           `json:"is_out_of_stock"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type PriceRule struct {
	ID           uuid.UUID      `json:"id"`
	RestaurantID uuid.UUID      `json:"restaurant_id"`
	MenuItemID   uuid.UUID      `json:"menu_item_id"`
	Name         string         `json:"name"`
	RuleType     PriceRuleType  `json:"rule_type"`
	SpecialPrice pgtype.Numeric `json:"special_price"`
	StartTime    pgtype.Text    `json:"start_time"`
	EndTime      pgtype.Text    `json:"end_time"`
	Days         []string       `json:"days"`
	StartDate    pgtype.Date    `json:"start_date"`
	EndDate      pgtype.Date    `json:"end_date"`
	Priority     int32          `json:"priority"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
}

type OrderSession struct {
	ID             uuid.UUID          `json:"id"`
	RestaurantID   uuid.UUID          `json:"restaurant_id"`
	TableID        pgtype.UUID        `json:"table_id"`
	SessionNumber  string             `json:"session_number"`
	Status         SessionStatus      `json:"status"`
	Channel        SessionChannel     `json:"channel"`
	CustomerName   pgtype.Text        `json:"customer_name"`
	GuestCount     pgtype.Int4        `json:"guest_count"`
	Notes          pgtype.Text        `json:"notes"`
	Subtotal       pgtype.Numeric     `json:"subtotal"`
	DiscountAmount pgtype.Numeric     `json:"discount_amount"`
	TaxAmount      pgtype.Numeric     `json:"tax_amount"`
	TotalAmount    pgtype.Numeric     `json:"total_amount"`
	OpenedBy       uuid.UUID          `json:"opened_by"`
	OpenedAt       time.Time          `json:"opened_at"`
	ClosedAt       pgtype.Timestamptz `json:"closed_at"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type OrderBatch struct {
	ID          uuid.UUID   `json:"id"`
	SessionID   uuid.UUID   `json:"session_id"`
	BatchNumber string      `json:"batch_number"`
	Status      BatchStatus `json:"status"`
	Notes       pgtype.Text `json:"notes"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID           uuid.UUID          `json:"id"`
	BatchID      uuid.UUID          `json:"batch_id"`
	MenuItemID   uuid.UUID          `json:"menu_item_id"`
	Quantity     int32              `json:"quantity"`
	UnitPrice    pgtype.Numeric     `json:"unit_price"`
	TotalPrice   pgtype.Numeric     `json:"total_price"`
	Status       ItemStatus         `json:"status"`
	Notes        pgtype.Text        `json:"notes"`
	CancelReason pgtype.Text        `json:"cancel_reason"`
	PriceRuleID  pgtype.UUID        `json:"price_rule_id"`
	PreparedAt   pgtype.Timestamptz `json:"prepared_at"`
	ServedAt     pgtype.Timestamptz `json:"served_at"`
	CancelledAt  pgtype.Timestamptz `json:"cancelled_at"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type Bill struct {
	ID             uuid.UUID          `json:"id"`
	SessionID      uuid.UUID          `json:"session_id"`
	RestaurantID   uuid.UUID          `json:"restaurant_id"`
	BillNumber     string             `json:"bill_number"`
	Status         BillStatus         `json:"status"`
	Subtotal       pgtype.Numeric     `json:"subtotal"`
	TaxRate        pgtype.Numeric     `json:"tax_rate"`
	TaxAmount      pgtype.Numeric     `json:"tax_amount"`
	DiscountAmount pgtype.Numeric     `json:"discount_amount"`
	TotalAmount    pgtype.Numeric     `json:"total_amount"`
	Notes          pgtype.Text        `json:"notes"`
	GeneratedBy    uuid.UUID          `json:"generated_by"`
	PaidAt         pgtype.Timestamptz `json:"paid_at"`
	VoidedAt       pgtype.Timestamptz `json:"voided_at"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type BillItem struct {
	ID         uuid.UUID      `json:"id"`
	BillID     uuid.UUID      `json:"bill_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Quantity   int32          `json:"quantity"`
	UnitPrice  pgtype.Numeric `json:"unit_price"`
	TotalPrice pgtype.Numeric `json:"total_price"`
}

type Payment struct {
	ID         uuid.UUID      `json:"id"`
	BillID     uuid.UUID      `json:"bill_id"`
	Amount     pgtype.Numeric `json:"amount"`
	Method     PaymentMethod  `json:"method"`
	Reference  pgtype.Text    `json:"reference"`
	Notes      pgtype.Text    `json:"notes"`
	ReceivedBy uuid.UUID      `json:"received_by"`
	CreatedAt  time.Time      `json:"created_at"`
}
