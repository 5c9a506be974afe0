package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/journals"
	"github.com/arthapos/ledger/internal/ledger/mappings"
	"github.com/arthapos/ledger/internal/ledger/periods"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

// Poster posts journal entries. Satisfied by the journal engine service.
type Poster interface {
	CreateEntry(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
}

// PeriodLocator finds the open period an event date falls into.
type PeriodLocator interface {
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (periods.Period, error)
}

// Hooks translates source module events into journal entries. Both sides of
// every entry come from the same event amount, so hook entries balance by
// construction. The source id derives from the event id, so a replayed
// event hits the existing source link and is treated as already posted.
type Hooks struct {
	journal  Poster
	resolver mappings.Resolver
	locator  PeriodLocator
	validate *validator.Validate
}

func NewHooks(journal Poster, resolver mappings.Resolver, locator PeriodLocator) *Hooks {
	return &Hooks{
		journal:  journal,
		resolver: resolver,
		locator:  locator,
		validate: validator.New(),
	}
}

// HandleStockAddition journals goods entering the warehouse. The credit
// side depends on how the stock was funded.
func (h *Hooks) HandleStockAddition(ctx context.Context, event StockAdditionEvent) error {
	if err := h.check(event, event.Amount); err != nil {
		return err
	}
	stockID, err := h.resolver.Resolve(ctx, mappings.ModuleInventory, mappings.KeyInventoryStock)
	if err != nil {
		return err
	}
	var creditModule, creditKey string
	switch event.Source {
	case SourceCashPurchase:
		creditModule, creditKey = mappings.ModulePurchase, mappings.KeyCash
	case SourceCreditPurchase:
		creditModule, creditKey = mappings.ModulePurchase, mappings.KeyAccountsPayable
	case SourceOpnameSurplus:
		creditModule, creditKey = mappings.ModuleInventory, mappings.KeyOpnameSurplus
	}
	creditID, err := h.resolver.Resolve(ctx, creditModule, creditKey)
	if err != nil {
		return err
	}
	return h.post(ctx, event.Date, journals.RefTypeStockIn, "inventory", event.EventID,
		event.Memo, event.ActorID, []journals.PostingLineInput{
			{AccountID: stockID, Debit: event.Amount},
			{AccountID: creditID, Credit: event.Amount},
		})
}

// HandleStockDecrease journals shrinkage found during stock opname.
func (h *Hooks) HandleStockDecrease(ctx context.Context, event StockDecreaseEvent) error {
	if err := h.check(event, event.Amount); err != nil {
		return err
	}
	stockID, err := h.resolver.Resolve(ctx, mappings.ModuleInventory, mappings.KeyInventoryStock)
	if err != nil {
		return err
	}
	shortageID, err := h.resolver.Resolve(ctx, mappings.ModuleInventory, mappings.KeyInventoryShortage)
	if err != nil {
		return err
	}
	return h.post(ctx, event.Date, journals.RefTypeStockOut, "inventory", event.EventID,
		event.Memo, event.ActorID, []journals.PostingLineInput{
			{AccountID: shortageID, Debit: event.Amount},
			{AccountID: stockID, Credit: event.Amount},
		})
}

// HandleExpensePaid journals a cash expense against the expense account the
// caller names directly.
func (h *Hooks) HandleExpensePaid(ctx context.Context, event ExpensePaidEvent) error {
	if err := h.check(event, event.Amount); err != nil {
		return err
	}
	cashID, err := h.resolver.Resolve(ctx, mappings.ModuleExpense, mappings.KeyCash)
	if err != nil {
		return err
	}
	return h.post(ctx, event.Date, journals.RefTypeExpense, "expense", event.EventID,
		event.Memo, event.ActorID, []journals.PostingLineInput{
			{AccountID: event.AccountID, Debit: event.Amount},
			{AccountID: cashID, Credit: event.Amount},
		})
}

// HandlePurchaseReturn journals goods sent back to a supplier. A cash
// purchase refunds cash, a credit purchase reduces the payable.
func (h *Hooks) HandlePurchaseReturn(ctx context.Context, event PurchaseReturnEvent) error {
	if err := h.check(event, event.Amount); err != nil {
		return err
	}
	debitKey := mappings.KeyAccountsPayable
	if event.Method == PaymentCash {
		debitKey = mappings.KeyCash
	}
	debitID, err := h.resolver.Resolve(ctx, mappings.ModulePurchase, debitKey)
	if err != nil {
		return err
	}
	stockID, err := h.resolver.Resolve(ctx, mappings.ModuleInventory, mappings.KeyInventoryStock)
	if err != nil {
		return err
	}
	return h.post(ctx, event.Date, journals.RefTypePurchaseReturn, "purchase", event.EventID,
		event.Memo, event.ActorID, []journals.PostingLineInput{
			{AccountID: debitID, Debit: event.Amount},
			{AccountID: stockID, Credit: event.Amount},
		})
}

// HandleSalesReturn journals a customer refund and the cost recovery as one
// entry: contra revenue and cash for the refund, stock and COGS for the
// goods coming back.
func (h *Hooks) HandleSalesReturn(ctx context.Context, event SalesReturnEvent) error {
	if err := h.check(event, event.RefundAmount); err != nil {
		return err
	}
	if !event.COGSAmount.IsPositive() {
		return fmt.Errorf("%w: cogs amount must be positive", shared.ErrValidation)
	}
	returnsID, err := h.resolver.Resolve(ctx, mappings.ModuleSales, mappings.KeySalesReturns)
	if err != nil {
		return err
	}
	cashID, err := h.resolver.Resolve(ctx, mappings.ModuleSales, mappings.KeyCash)
	if err != nil {
		return err
	}
	stockID, err := h.resolver.Resolve(ctx, mappings.ModuleInventory, mappings.KeyInventoryStock)
	if err != nil {
		return err
	}
	cogsID, err := h.resolver.Resolve(ctx, mappings.ModuleSales, mappings.KeyCOGS)
	if err != nil {
		return err
	}
	return h.post(ctx, event.Date, journals.RefTypeSalesReturn, "sales", event.EventID,
		event.Memo, event.ActorID, []journals.PostingLineInput{
			{AccountID: returnsID, Debit: event.RefundAmount},
			{AccountID: cashID, Credit: event.RefundAmount},
			{AccountID: stockID, Debit: event.COGSAmount},
			{AccountID: cogsID, Credit: event.COGSAmount},
		})
}

func (h *Hooks) check(event any, amount decimal.Decimal) error {
	if err := h.validate.Struct(event); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	return nil
}

func (h *Hooks) post(ctx context.Context, date time.Time, refType, module string, eventID uuid.UUID, memo string, actorID int64, lines []journals.PostingLineInput) error {
	period, err := h.locator.FindOpenPeriodByDate(ctx, date)
	if err != nil {
		return err
	}
	_, err = h.journal.CreateEntry(ctx, journals.PostingInput{
		PeriodID:     period.ID,
		Date:         date,
		RefType:      refType,
		SourceModule: module,
		SourceID:     sourceID(module, eventID),
		Memo:         memo,
		PostedBy:     actorID,
		Lines:        lines,
	})
	if errors.Is(err, shared.ErrSourceAlreadyLinked) {
		return nil
	}
	return err
}

func sourceID(module string, eventID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%s", module, eventID)))
}
