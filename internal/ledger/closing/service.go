package closing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/accounts"
	"github.com/arthapos/ledger/internal/ledger/balances"
	"github.com/arthapos/ledger/internal/ledger/mappings"
	"github.com/arthapos/ledger/internal/ledger/periods"
	"github.com/arthapos/ledger/internal/ledger/shared"
	internalshared "github.com/arthapos/ledger/internal/shared"
)

// AuditPort records close events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service runs period closes. The whole close happens in one transaction:
// validation, closing entries, opening balance carry forward, and the status
// flip either all land or none do. Concurrent closes of the same period
// serialize on the period row lock; the loser finds it closed.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ValidateClosable reports every condition blocking a close without
// changing anything. An empty slice means the period can close.
func (s *Service) ValidateClosable(ctx context.Context, periodID int64) ([]Issue, error) {
	if periodID == 0 {
		return nil, fmt.Errorf("%w: period id required", shared.ErrValidation)
	}
	var issues []Issue
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.ErrAlreadyClosed
		}
		issues, err = s.collectIssues(ctx, tx, period)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *Service) collectIssues(ctx context.Context, tx TxRepository, period periods.Period) ([]Issue, error) {
	var issues []Issue

	drafts, err := tx.DraftEntryNumbers(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	if len(drafts) > 0 {
		issues = append(issues, Issue{
			Code:    IssueDraftsPending,
			Message: fmt.Sprintf("draft entries must be posted or deleted: %s", strings.Join(drafts, ", ")),
		})
	}

	unbalanced, err := tx.UnbalancedEntryNumbers(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	if len(unbalanced) > 0 {
		issues = append(issues, Issue{
			Code:    IssueUnbalanced,
			Message: fmt.Sprintf("entries out of balance: %s", strings.Join(unbalanced, ", ")),
		})
	}

	if _, err := tx.ResolveMapping(ctx, mappings.ModuleClosing, mappings.KeyRetainedEarnings); err != nil {
		issues = append(issues, Issue{
			Code:    IssueNoRetainedEarns,
			Message: "no retained earnings account is mapped for closing",
		})
	}

	if _, err := tx.NextPeriodAfter(ctx, period.EndDate); err != nil {
		issues = append(issues, Issue{
			Code:    IssueNoNextPeriod,
			Message: "no open period follows this one to carry balances into",
		})
	}

	return issues, nil
}

// Close zeroes every revenue and expense account into retained earnings,
// carries balance sheet endings into the next open period, and marks the
// period CLOSED. Fails with ErrNotClosable when validation finds issues.
func (s *Service) Close(ctx context.Context, periodID, closedBy int64) (Result, error) {
	if periodID == 0 {
		return Result{}, fmt.Errorf("%w: period id required", shared.ErrValidation)
	}
	var result Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.ErrAlreadyClosed
		}
		issues, err := s.collectIssues(ctx, tx, period)
		if err != nil {
			return err
		}
		if len(issues) > 0 {
			return fmt.Errorf("%w: %s", shared.ErrNotClosable, issues[0].Message)
		}

		retainedEarningsID, err := tx.ResolveMapping(ctx, mappings.ModuleClosing, mappings.KeyRetainedEarnings)
		if err != nil {
			return err
		}
		next, err := tx.NextPeriodAfter(ctx, period.EndDate)
		if err != nil {
			return err
		}
		totals, err := tx.AccountTotals(ctx, periodID)
		if err != nil {
			return err
		}

		closedAt := s.now()
		result = Result{PeriodID: periodID, NextPeriodID: next.ID, ClosedAt: closedAt}

		revenueLines, totalRevenue := closingLines(totals, accounts.AccountTypeRevenue)
		expenseLines, totalExpense := closingLines(totals, accounts.AccountTypeExpense)
		result.NetIncome = totalRevenue.Sub(totalExpense)

		if len(revenueLines) > 0 {
			lines := append(revenueLines, balancingLine(retainedEarningsID, totalRevenue, true))
			number, err := tx.InsertClosingEntry(ctx, EntryInput{
				PeriodID: periodID,
				Date:     period.EndDate,
				SourceID: closingSourceID(periodID, "revenue"),
				Memo:     fmt.Sprintf("Close revenue for %s", period.Name),
				PostedBy: closedBy,
				Lines:    lines,
			})
			if err != nil {
				return err
			}
			result.ClosingEntries = append(result.ClosingEntries, number)
		}
		if len(expenseLines) > 0 {
			lines := append(expenseLines, balancingLine(retainedEarningsID, totalExpense, false))
			number, err := tx.InsertClosingEntry(ctx, EntryInput{
				PeriodID: periodID,
				Date:     period.EndDate,
				SourceID: closingSourceID(periodID, "expense"),
				Memo:     fmt.Sprintf("Close expenses for %s", period.Name),
				PostedBy: closedBy,
				Lines:    lines,
			})
			if err != nil {
				return err
			}
			result.ClosingEntries = append(result.ClosingEntries, number)
		}

		for _, t := range totals {
			if t.Type == accounts.AccountTypeRevenue || t.Type == accounts.AccountTypeExpense {
				continue
			}
			if !t.IsActive {
				continue
			}
			ending := balances.Ending(t.Type.NormalBalance(), t.Opening, t.Debit, t.Credit)
			if t.AccountID == retainedEarningsID {
				ending = ending.Add(result.NetIncome)
			}
			if ending.IsZero() {
				continue
			}
			if err := tx.UpsertOpeningBalance(ctx, t.AccountID, next.ID, ending); err != nil {
				return err
			}
			result.CarriedForward++
		}

		return tx.MarkClosed(ctx, periodID, closedBy, closedAt)
	})
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, closedBy, result)
	return result, nil
}

func (s *Service) record(ctx context.Context, actorID int64, result Result) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		ActorID:  actorID,
		Action:   "period.close",
		Entity:   "period",
		EntityID: fmt.Sprintf("%d", result.PeriodID),
		Meta: map[string]any{
			"net_income":      result.NetIncome.String(),
			"closing_entries": result.ClosingEntries,
			"next_period_id":  result.NextPeriodID,
		},
		At: result.ClosedAt,
	})
}

// closingLines builds the legs that zero out every account of the given
// type, returning them with the summed normal-side total. Accounts sitting
// on their abnormal side close from the opposite direction.
func closingLines(totals []balances.AccountTotals, accountType accounts.AccountType) ([]Line, decimal.Decimal) {
	var lines []Line
	total := decimal.Zero
	for _, t := range totals {
		if t.Type != accountType {
			continue
		}
		ending := balances.Ending(t.Type.NormalBalance(), t.Opening, t.Debit, t.Credit)
		if ending.IsZero() {
			continue
		}
		total = total.Add(ending)
		line := Line{AccountID: t.AccountID, Memo: "Period closing"}
		// Revenue is credit-normal, so a positive ending closes with a
		// debit; expense mirrors that.
		closeWithDebit := t.Type.NormalBalance() == accounts.NormalBalanceCredit
		if ending.IsNegative() {
			closeWithDebit = !closeWithDebit
			ending = ending.Neg()
		}
		if closeWithDebit {
			line.Debit = ending
		} else {
			line.Credit = ending
		}
		lines = append(lines, line)
	}
	return lines, total
}

// balancingLine offsets a closing entry against retained earnings. Revenue
// closes with a credit to retained earnings, expense with a debit; negative
// totals flip the side.
func balancingLine(accountID int64, total decimal.Decimal, credit bool) Line {
	if total.IsNegative() {
		credit = !credit
		total = total.Neg()
	}
	line := Line{AccountID: accountID, Memo: "Period closing"}
	if credit {
		line.Credit = total
	} else {
		line.Debit = total
	}
	return line
}

func closingSourceID(periodID int64, kind string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("closing:%d:%s", periodID, kind)))
}
