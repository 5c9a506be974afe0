package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockSource distinguishes how inventory arrived. The funding side of the
// journal entry depends on it.
type StockSource string

const (
	SourceCashPurchase   StockSource = "CASH_PURCHASE"
	SourceCreditPurchase StockSource = "CREDIT_PURCHASE"
	SourceOpnameSurplus  StockSource = "OPNAME_SURPLUS"
)

// StockAdditionEvent fires when goods enter the warehouse.
type StockAdditionEvent struct {
	EventID uuid.UUID       `validate:"required"`
	Source  StockSource     `validate:"required,oneof=CASH_PURCHASE CREDIT_PURCHASE OPNAME_SURPLUS"`
	Amount  decimal.Decimal `validate:"required"`
	Date    time.Time       `validate:"required"`
	Memo    string
	ActorID int64
}

// StockDecreaseEvent fires when stock opname finds goods missing or damaged.
type StockDecreaseEvent struct {
	EventID uuid.UUID       `validate:"required"`
	Amount  decimal.Decimal `validate:"required"`
	Date    time.Time       `validate:"required"`
	Memo    string
	ActorID int64
}

// ExpensePaidEvent fires when an operating expense is paid in cash.
type ExpensePaidEvent struct {
	EventID   uuid.UUID       `validate:"required"`
	AccountID int64           `validate:"required"`
	Amount    decimal.Decimal `validate:"required"`
	Date      time.Time       `validate:"required"`
	Memo      string
	ActorID   int64
}

// PaymentMethod says whether a purchase settled in cash or on credit.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCredit PaymentMethod = "CREDIT"
)

// PurchaseReturnEvent fires when purchased goods go back to the supplier.
// The debit side depends on how the original purchase was paid.
type PurchaseReturnEvent struct {
	EventID uuid.UUID       `validate:"required"`
	Method  PaymentMethod   `validate:"required,oneof=CASH CREDIT"`
	Amount  decimal.Decimal `validate:"required"`
	Date    time.Time       `validate:"required"`
	Memo    string
	ActorID int64
}

// SalesReturnEvent fires when a customer returns goods. The revenue reversal
// and the cost recovery post as one entry.
type SalesReturnEvent struct {
	EventID      uuid.UUID       `validate:"required"`
	RefundAmount decimal.Decimal `validate:"required"`
	COGSAmount   decimal.Decimal `validate:"required"`
	Date         time.Time       `validate:"required"`
	Memo         string
	ActorID      int64
}
