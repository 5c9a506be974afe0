package journals

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arthapos/ledger/internal/ledger/periods"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

type memoryRepo struct {
	periods map[int64]periods.Period
	entries map[int64]JournalEntry
	lines   map[int64][]JournalLine
	links   map[string]int64
	nextID  int64
	nextSeq int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		periods: make(map[int64]periods.Period),
		entries: make(map[int64]JournalEntry),
		lines:   make(map[int64][]JournalLine),
		links:   make(map[string]int64),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) List(ctx context.Context, periodID int64) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		if periodID == 0 || e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	if p, ok := tx.repo.periods[periodID]; ok {
		return p, nil
	}
	return periods.Period{}, shared.ErrInvalidPeriod
}

func (tx *memoryTx) NextOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error) {
	var best periods.Period
	found := false
	for _, p := range tx.repo.periods {
		if p.Status != periods.PeriodStatusOpen || p.StartDate.Before(date) {
			continue
		}
		if !found || p.StartDate.Before(best.StartDate) {
			best = p
			found = true
		}
	}
	if !found {
		return periods.Period{}, shared.ErrInvalidPeriod
	}
	return best, nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, in PostingInput, status EntryStatus) (JournalEntry, error) {
	tx.repo.nextID++
	tx.repo.nextSeq++
	entry := JournalEntry{
		ID:           tx.repo.nextID,
		Number:       FormatNumber(tx.repo.nextSeq),
		PeriodID:     in.PeriodID,
		Date:         in.Date,
		RefType:      in.RefType,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		Memo:         in.Memo,
		PostedBy:     in.PostedBy,
		Status:       status,
	}
	if in.reversalOf != 0 {
		rev := in.reversalOf
		entry.ReversalOf = &rev
	}
	if status == EntryStatusPosted {
		now := time.Now()
		entry.PostedAt = &now
	}
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		tx.repo.lines[entryID] = append(tx.repo.lines[entryID], JournalLine{
			ID:        int64(len(tx.repo.lines[entryID]) + 1),
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	return nil
}

func (tx *memoryTx) LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error {
	key := module + ":" + sourceID.String()
	if _, ok := tx.repo.links[key]; ok {
		return shared.ErrSourceAlreadyLinked
	}
	tx.repo.links[key] = entryID
	return nil
}

func (tx *memoryTx) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error) {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return JournalEntry{}, nil, shared.ErrNotFound
	}
	return entry, tx.repo.lines[entryID], nil
}

func (tx *memoryTx) UpdateEntryStatus(ctx context.Context, entryID int64, status EntryStatus, postedAt time.Time) error {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return shared.ErrNotFound
	}
	entry.Status = status
	entry.PostedAt = &postedAt
	tx.repo.entries[entryID] = entry
	return nil
}

func (tx *memoryTx) DeleteEntry(ctx context.Context, entryID int64) error {
	if _, ok := tx.repo.entries[entryID]; !ok {
		return shared.ErrNotFound
	}
	delete(tx.repo.entries, entryID)
	delete(tx.repo.lines, entryID)
	return nil
}

func openPeriod(r *memoryRepo, id int64, start, end time.Time) periods.Period {
	p := periods.Period{ID: id, Name: "P", StartDate: start, EndDate: end, Status: periods.PeriodStatusOpen, IsActive: true}
	r.periods[id] = p
	return p
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func basePosting(periodID int64, date time.Time) PostingInput {
	return PostingInput{
		PeriodID:     periodID,
		Date:         date,
		RefType:      RefTypeExpense,
		SourceModule: "TEST",
		SourceID:     uuid.New(),
		Memo:         "test entry",
		PostedBy:     7,
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: amount(50000)},
			{AccountID: 2, Credit: amount(50000)},
		},
	}
}

func TestCreateEntryPersistsBalancedEntry(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)

	entry, err := svc.CreateEntry(context.Background(), basePosting(1, date(2024, 3, 10)))
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, entry.Status)
	require.Equal(t, "JRN-000001", entry.Number)
	require.Len(t, entry.Lines, 2)
}

func TestCreateEntryRejectsUnbalancedLines(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)

	input := basePosting(1, date(2024, 3, 10))
	input.Lines = []PostingLineInput{
		{AccountID: 1, Debit: amount(50000)},
		{AccountID: 2, Credit: amount(49000)},
	}
	_, err := svc.CreateEntry(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	var unbalanced *shared.UnbalancedEntryError
	require.True(t, errors.As(err, &unbalanced))
	require.True(t, unbalanced.Debit.Equal(amount(50000)))
	require.True(t, unbalanced.Credit.Equal(amount(49000)))
	require.Empty(t, repo.entries)
}

func TestCreateEntryToleratesLegacyRounding(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)

	input := basePosting(1, date(2024, 3, 10))
	input.Lines = []PostingLineInput{
		{AccountID: 1, Debit: decimal.RequireFromString("100.00")},
		{AccountID: 2, Credit: decimal.RequireFromString("99.99")},
	}
	_, err := svc.CreateEntry(context.Background(), input)
	require.NoError(t, err)
}

func TestCreateEntryRejectsClosedPeriod(t *testing.T) {
	repo := newMemoryRepo()
	p := openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	p.Status = periods.PeriodStatusClosed
	repo.periods[1] = p
	svc := NewService(repo, nil)

	_, err := svc.CreateEntry(context.Background(), basePosting(1, date(2024, 3, 10)))
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestCreateEntryRejectsDateOutsidePeriod(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)

	_, err := svc.CreateEntry(context.Background(), basePosting(1, date(2025, 1, 5)))
	require.ErrorIs(t, err, shared.ErrDateOutOfRange)
}

func TestCreateEntryIdempotentOnSourceLink(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)

	input := basePosting(1, date(2024, 3, 10))
	_, err := svc.CreateEntry(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.CreateEntry(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
}

func TestReverseEntryMirrorsLines(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)
	ctx := context.Background()

	original, err := svc.CreateEntry(ctx, basePosting(1, date(2024, 3, 10)))
	require.NoError(t, err)

	reversal, err := svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID, ActorID: 7})
	require.NoError(t, err)
	require.NotNil(t, reversal.ReversalOf)
	require.Equal(t, original.ID, *reversal.ReversalOf)
	require.Equal(t, RefTypeReversal, reversal.RefType)

	require.Len(t, reversal.Lines, 2)
	require.True(t, reversal.Lines[0].Credit.Equal(amount(50000)))
	require.True(t, reversal.Lines[1].Debit.Equal(amount(50000)))

	// Original entry untouched.
	kept := repo.entries[original.ID]
	require.Equal(t, EntryStatusPosted, kept.Status)
}

func TestDoubleReversalRestoresOriginalShape(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)
	ctx := context.Background()

	original, err := svc.CreateEntry(ctx, basePosting(1, date(2024, 3, 10)))
	require.NoError(t, err)
	first, err := svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID, ActorID: 7})
	require.NoError(t, err)
	second, err := svc.ReverseEntry(ctx, ReverseInput{EntryID: first.ID, ActorID: 7})
	require.NoError(t, err)

	require.NotEqual(t, original.ID, second.ID)
	require.Len(t, second.Lines, len(original.Lines))
	for i, line := range second.Lines {
		require.Equal(t, original.Lines[i].AccountID, line.AccountID)
		require.True(t, original.Lines[i].Debit.Equal(line.Debit))
		require.True(t, original.Lines[i].Credit.Equal(line.Credit))
	}
}

func TestReverseEntryBalances(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)
	ctx := context.Background()

	original, err := svc.CreateEntry(ctx, basePosting(1, date(2024, 3, 10)))
	require.NoError(t, err)
	reversal, err := svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID, ActorID: 7})
	require.NoError(t, err)

	var debit, credit decimal.Decimal
	for _, line := range reversal.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	require.True(t, shared.WithinTolerance(debit, credit))
}

func TestReverseEntryTargetsNextOpenPeriodWhenClosed(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	openPeriod(repo, 2, date(2025, 1, 1), date(2025, 12, 31))
	svc := NewService(repo, nil)
	ctx := context.Background()

	original, err := svc.CreateEntry(ctx, basePosting(1, date(2024, 3, 10)))
	require.NoError(t, err)

	p := repo.periods[1]
	p.Status = periods.PeriodStatusClosed
	repo.periods[1] = p

	reversal, err := svc.ReverseEntry(ctx, ReverseInput{EntryID: original.ID, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(2), reversal.PeriodID)
	require.Equal(t, date(2025, 1, 1), reversal.Date)
}

func TestDeleteEntryOnlyForDrafts(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)
	ctx := context.Background()

	posted, err := svc.CreateEntry(ctx, basePosting(1, date(2024, 3, 10)))
	require.NoError(t, err)
	require.ErrorIs(t, svc.DeleteEntry(ctx, posted.ID, 7), shared.ErrImmutableEntry)

	draftInput := basePosting(1, date(2024, 3, 11))
	draftInput.AsDraft = true
	draft, err := svc.CreateEntry(ctx, draftInput)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEntry(ctx, draft.ID, 7))
	require.NotContains(t, repo.entries, draft.ID)
}

func TestDeleteDraftRefusedInClosedPeriod(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)
	ctx := context.Background()

	draftInput := basePosting(1, date(2024, 3, 11))
	draftInput.AsDraft = true
	draft, err := svc.CreateEntry(ctx, draftInput)
	require.NoError(t, err)

	p := repo.periods[1]
	p.Status = periods.PeriodStatusClosed
	repo.periods[1] = p

	require.ErrorIs(t, svc.DeleteEntry(ctx, draft.ID, 7), shared.ErrImmutableEntry)
}

func TestPostEntryPromotesDraft(t *testing.T) {
	repo := newMemoryRepo()
	openPeriod(repo, 1, date(2024, 1, 1), date(2024, 12, 31))
	svc := NewService(repo, nil)
	ctx := context.Background()

	draftInput := basePosting(1, date(2024, 3, 11))
	draftInput.AsDraft = true
	draft, err := svc.CreateEntry(ctx, draftInput)
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, draft.Status)

	posted, err := svc.PostEntry(ctx, draft.ID, 7)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)

	_, err = svc.PostEntry(ctx, draft.ID, 7)
	require.ErrorIs(t, err, shared.ErrImmutableEntry)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
