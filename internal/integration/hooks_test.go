package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arthapos/ledger/internal/ledger/journals"
	"github.com/arthapos/ledger/internal/ledger/periods"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

type fakePoster struct {
	posted []journals.PostingInput
	seen   map[uuid.UUID]bool
}

func (p *fakePoster) CreateEntry(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error) {
	if p.seen == nil {
		p.seen = make(map[uuid.UUID]bool)
	}
	if p.seen[input.SourceID] {
		return journals.JournalEntry{}, shared.ErrSourceAlreadyLinked
	}
	p.seen[input.SourceID] = true
	p.posted = append(p.posted, input)
	return journals.JournalEntry{ID: int64(len(p.posted)), Status: journals.EntryStatusPosted}, nil
}

type fakeResolver map[string]int64

func (r fakeResolver) Resolve(ctx context.Context, module, key string) (int64, error) {
	id, ok := r[module+"/"+key]
	if !ok {
		return 0, shared.ErrMappingNotFound
	}
	return id, nil
}

type fakeLocator struct {
	period periods.Period
}

func (l fakeLocator) FindOpenPeriodByDate(ctx context.Context, date time.Time) (periods.Period, error) {
	if !l.period.Contains(date) {
		return periods.Period{}, shared.ErrInvalidPeriod
	}
	return l.period, nil
}

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testResolver() fakeResolver {
	return fakeResolver{
		"inventory/stock":             10,
		"inventory/shortage":          11,
		"inventory/opname_surplus":    12,
		"purchase/cash":               20,
		"purchase/accounts_payable":   21,
		"expense/cash":                20,
		"sales/cash":                  20,
		"sales/revenue":               30,
		"sales/returns":               31,
		"sales/cogs":                  40,
	}
}

func testLocator() fakeLocator {
	return fakeLocator{period: periods.Period{
		ID:        1,
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:    periods.PeriodStatusOpen,
	}}
}

func TestStockAdditionCashPurchase(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandleStockAddition(context.Background(), StockAdditionEvent{
		EventID: uuid.New(),
		Source:  SourceCashPurchase,
		Amount:  amt(1_000_000),
		Date:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		ActorID: 7,
	})
	require.NoError(t, err)
	require.Len(t, poster.posted, 1)

	input := poster.posted[0]
	require.Equal(t, journals.RefTypeStockIn, input.RefType)
	require.Equal(t, int64(10), input.Lines[0].AccountID)
	require.True(t, input.Lines[0].Debit.Equal(amt(1_000_000)))
	require.Equal(t, int64(20), input.Lines[1].AccountID)
	require.True(t, input.Lines[1].Credit.Equal(amt(1_000_000)))
}

func TestStockAdditionCreditPurchaseHitsPayable(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandleStockAddition(context.Background(), StockAdditionEvent{
		EventID: uuid.New(),
		Source:  SourceCreditPurchase,
		Amount:  amt(500_000),
		Date:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, int64(21), poster.posted[0].Lines[1].AccountID)
}

func TestStockDecreasePostsShortageExpense(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandleStockDecrease(context.Background(), StockDecreaseEvent{
		EventID: uuid.New(),
		Amount:  amt(75_000),
		Date:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	input := poster.posted[0]
	require.Equal(t, journals.RefTypeStockOut, input.RefType)
	require.Equal(t, int64(11), input.Lines[0].AccountID)
	require.True(t, input.Lines[0].Debit.Equal(amt(75_000)))
	require.Equal(t, int64(10), input.Lines[1].AccountID)
	require.True(t, input.Lines[1].Credit.Equal(amt(75_000)))
}

func TestExpensePaidDebitsNamedAccount(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandleExpensePaid(context.Background(), ExpensePaidEvent{
		EventID:   uuid.New(),
		AccountID: 55,
		Amount:    amt(120_000),
		Date:      time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, int64(55), poster.posted[0].Lines[0].AccountID)
	require.Equal(t, int64(20), poster.posted[0].Lines[1].AccountID)
}

func TestPurchaseReturnReducesPayableAndStock(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandlePurchaseReturn(context.Background(), PurchaseReturnEvent{
		EventID: uuid.New(),
		Method:  PaymentCredit,
		Amount:  amt(250_000),
		Date:    time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	input := poster.posted[0]
	require.Equal(t, int64(21), input.Lines[0].AccountID)
	require.True(t, input.Lines[0].Debit.Equal(amt(250_000)))
	require.Equal(t, int64(10), input.Lines[1].AccountID)
}

func TestCashPurchaseReturnRefundsCash(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandlePurchaseReturn(context.Background(), PurchaseReturnEvent{
		EventID: uuid.New(),
		Method:  PaymentCash,
		Amount:  amt(80_000),
		Date:    time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	input := poster.posted[0]
	require.Equal(t, int64(20), input.Lines[0].AccountID)
	require.Equal(t, int64(10), input.Lines[1].AccountID)
}

func TestSalesReturnPostsRefundAndCostRecovery(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandleSalesReturn(context.Background(), SalesReturnEvent{
		EventID:      uuid.New(),
		RefundAmount: amt(150_000),
		COGSAmount:   amt(90_000),
		Date:         time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	input := poster.posted[0]
	require.Len(t, input.Lines, 4)
	var debit, credit decimal.Decimal
	for _, line := range input.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	require.True(t, debit.Equal(credit))
}

func TestReplayedEventIsSwallowed(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	event := StockAdditionEvent{
		EventID: uuid.New(),
		Source:  SourceCashPurchase,
		Amount:  amt(1_000_000),
		Date:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, hooks.HandleStockAddition(context.Background(), event))
	require.NoError(t, hooks.HandleStockAddition(context.Background(), event))
	require.Len(t, poster.posted, 1)
}

func TestNonPositiveAmountRejected(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, testResolver(), testLocator())

	err := hooks.HandleStockDecrease(context.Background(), StockDecreaseEvent{
		EventID: uuid.New(),
		Amount:  amt(-5),
		Date:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, poster.posted)
}

func TestMissingMappingSurfacesError(t *testing.T) {
	poster := &fakePoster{}
	hooks := NewHooks(poster, fakeResolver{}, testLocator())

	err := hooks.HandleStockDecrease(context.Background(), StockDecreaseEvent{
		EventID: uuid.New(),
		Amount:  amt(10),
		Date:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
}
