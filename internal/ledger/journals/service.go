package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arthapos/ledger/internal/ledger/shared"
	internalshared "github.com/arthapos/ledger/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service coordinates creating, posting, reversing, and deleting entries.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the journal engine.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateEntry validates and persists a journal entry with all its lines as
// one atomic unit. Entries are posted immediately unless AsDraft is set.
func (s *Service) CreateEntry(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	status := EntryStatusPosted
	if input.AsDraft {
		status = EntryStatusDraft
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, input.PeriodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.ErrPeriodClosed
		}
		if !period.Contains(input.Date) {
			return shared.ErrDateOutOfRange
		}
		inserted, err := tx.InsertEntry(ctx, input, status)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, inserted.ID); err != nil {
			return err
		}
		inserted.Lines = toJournalLines(inserted.ID, input.Lines, s.now())
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.PostedBy, "journal.create", entry.ID, map[string]any{
		"number":        entry.Number,
		"status":        string(entry.Status),
		"source_module": input.SourceModule,
		"source_id":     input.SourceID.String(),
	})
	return entry, nil
}

// PostEntry promotes a draft entry to the permanent ledger.
func (s *Service) PostEntry(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, fmt.Errorf("%w: entry id required", shared.ErrValidation)
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, lines, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Posted() {
			return shared.ErrImmutableEntry
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.ErrPeriodClosed
		}
		postedAt := s.now()
		if err := tx.UpdateEntryStatus(ctx, current.ID, EntryStatusPosted, postedAt); err != nil {
			return err
		}
		current.Status = EntryStatusPosted
		current.PostedAt = &postedAt
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.post", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// ReverseEntry creates a new entry whose lines mirror the original, leaving
// the original in the permanent record. When the original period is closed
// the reversal lands on the first day of the next open period.
func (s *Service) ReverseEntry(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, fmt.Errorf("%w: entry id required", shared.ErrValidation)
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, lines, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if !original.Posted() {
			return shared.ErrImmutableEntry
		}
		period, err := tx.GetPeriodForUpdate(ctx, original.PeriodID)
		if err != nil {
			return err
		}
		targetPeriod := period
		targetDate := original.Date
		if input.TargetDate != nil {
			targetDate = *input.TargetDate
		}
		if period.Closed() {
			next, err := tx.NextOpenPeriodAfter(ctx, period.EndDate.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			targetPeriod = next
			targetDate = next.StartDate
		}
		if !targetPeriod.Contains(targetDate) {
			return shared.ErrDateOutOfRange
		}
		posting := PostingInput{
			PeriodID:     targetPeriod.ID,
			Date:         targetDate,
			RefType:      RefTypeReversal,
			SourceModule: original.SourceModule + ":REVERSAL",
			SourceID:     uuid.New(),
			Memo:         reversalMemo(input.Memo, original.Number),
			PostedBy:     input.ActorID,
			reversalOf:   original.ID,
			Lines:        mirrorLines(lines),
		}
		inserted, err := tx.InsertEntry(ctx, posting, EntryStatusPosted)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, posting.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, posting.SourceModule, posting.SourceID, inserted.ID); err != nil {
			return err
		}
		inserted.ReversalOf = &original.ID
		inserted.Lines = toJournalLines(inserted.ID, posting.Lines, s.now())
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.ActorID, "journal.reverse", input.EntryID, map[string]any{
		"reversal_id":     reversal.ID,
		"reversal_number": reversal.Number,
	})
	return reversal, nil
}

// DeleteEntry removes a draft entry. Posted entries and entries in closed
// periods are immutable; correct those with ReverseEntry instead.
func (s *Service) DeleteEntry(ctx context.Context, entryID, actorID int64) error {
	if entryID == 0 {
		return fmt.Errorf("%w: entry id required", shared.ErrValidation)
	}
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, _, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Posted() {
			return shared.ErrImmutableEntry
		}
		period, err := tx.GetPeriodForUpdate(ctx, entry.PeriodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.ErrImmutableEntry
		}
		number = entry.Number
		return tx.DeleteEntry(ctx, entryID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "journal.delete", entryID, map[string]any{"number": number})
	return nil
}

// List retrieves entries, optionally scoped to one period.
func (s *Service) List(ctx context.Context, periodID int64) ([]JournalEntry, error) {
	return s.repo.List(ctx, periodID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

func mirrorLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
			Memo:      line.Memo,
		})
	}
	return out
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
			CreatedAt: ts,
		})
	}
	return out
}

func reversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", number)
}
