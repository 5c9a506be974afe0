package balances

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/accounts"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

// Calculator derives balances, trial balances, and running ledgers from
// posted activity. It never writes; all state changes go through the
// journal engine.
type Calculator struct {
	repo Repository
}

func NewCalculator(repo Repository) *Calculator {
	return &Calculator{repo: repo}
}

// AccountBalance computes one account's position for the query window.
func (c *Calculator) AccountBalance(ctx context.Context, accountID int64, q Query) (AccountBalance, error) {
	if accountID == 0 || q.PeriodID == 0 {
		return AccountBalance{}, fmt.Errorf("%w: account and period required", shared.ErrValidation)
	}
	accountType, err := c.repo.AccountType(ctx, accountID)
	if err != nil {
		return AccountBalance{}, err
	}
	opening, err := c.repo.OpeningBalance(ctx, accountID, q.PeriodID)
	if err != nil {
		return AccountBalance{}, err
	}
	debit, credit, err := c.repo.MutationTotals(ctx, accountID, q)
	if err != nil {
		return AccountBalance{}, err
	}
	return AccountBalance{
		AccountID:   accountID,
		Type:        accountType,
		Opening:     opening,
		DebitTotal:  debit,
		CreditTotal: credit,
		Ending:      Ending(accountType.NormalBalance(), opening, debit, credit),
	}, nil
}

// TrialBalance lists every active account with its ending balance placed in
// its display column and checks the debit = credit identity over the totals.
func (c *Calculator) TrialBalance(ctx context.Context, periodID int64) (TrialBalance, error) {
	if periodID == 0 {
		return TrialBalance{}, fmt.Errorf("%w: period required", shared.ErrValidation)
	}
	totals, err := c.repo.ActiveAccountTotals(ctx, periodID)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{PeriodID: periodID}
	for _, t := range totals {
		ending := Ending(t.Type.NormalBalance(), t.Opening, t.Debit, t.Credit)
		amount, side := Display(t.Type.NormalBalance(), ending)
		row := TrialBalanceRow{AccountID: t.AccountID, Code: t.Code, Name: t.Name, Type: t.Type}
		if side == SideDebit {
			row.Debit = amount
		} else {
			row.Credit = amount
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}
	tb.IsBalanced = shared.WithinTolerance(tb.TotalDebit, tb.TotalCredit)
	return tb, nil
}

// RunningLedger returns the chronological postings for one account with a
// running balance after each line. The same query always yields the same
// sequence; ordering ties break on entry then line id.
func (c *Calculator) RunningLedger(ctx context.Context, accountID int64, q Query) (RunningLedger, error) {
	if accountID == 0 || q.PeriodID == 0 {
		return RunningLedger{}, fmt.Errorf("%w: account and period required", shared.ErrValidation)
	}
	accountType, err := c.repo.AccountType(ctx, accountID)
	if err != nil {
		return RunningLedger{}, err
	}
	opening, err := c.repo.OpeningBalance(ctx, accountID, q.PeriodID)
	if err != nil {
		return RunningLedger{}, err
	}
	lines, err := c.repo.LedgerLines(ctx, accountID, q)
	if err != nil {
		return RunningLedger{}, err
	}
	nb := accountType.NormalBalance()
	running := opening
	for i := range lines {
		running = Ending(nb, running, lines[i].Debit, lines[i].Credit)
		lines[i].Running = running
	}
	return RunningLedger{
		AccountID: accountID,
		Opening:   opening,
		Lines:     lines,
		Ending:    running,
	}, nil
}

// NetIncome is revenue minus expense over the window, both taken on their
// normal sides.
func (c *Calculator) NetIncome(ctx context.Context, periodID int64) (decimal.Decimal, error) {
	totals, err := c.repo.ActiveAccountTotals(ctx, periodID)
	if err != nil {
		return decimal.Zero, err
	}
	net := decimal.Zero
	for _, t := range totals {
		switch t.Type {
		case accounts.AccountTypeRevenue:
			net = net.Add(Ending(t.Type.NormalBalance(), t.Opening, t.Debit, t.Credit))
		case accounts.AccountTypeExpense:
			net = net.Sub(Ending(t.Type.NormalBalance(), t.Opening, t.Debit, t.Credit))
		}
	}
	return net, nil
}
