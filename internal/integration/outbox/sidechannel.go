package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arthapos/ledger/internal/integration"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

// Event kinds a record can carry.
const (
	KindStockAddition  = "stock_addition"
	KindStockDecrease  = "stock_decrease"
	KindExpensePaid    = "expense_paid"
	KindPurchaseReturn = "purchase_return"
	KindSalesReturn    = "sales_return"
)

// SideChannel posts source module events best effort: a ledger failure is
// parked and retried instead of failing the calling operation. Validation
// errors still surface, those are caller bugs redelivery cannot fix.
type SideChannel struct {
	hooks *integration.Hooks
	store Store
	queue Enqueuer
	log   *slog.Logger
}

func NewSideChannel(hooks *integration.Hooks, store Store, queue Enqueuer, log *slog.Logger) *SideChannel {
	return &SideChannel{hooks: hooks, store: store, queue: queue, log: log}
}

func (s *SideChannel) StockAddition(ctx context.Context, event integration.StockAdditionEvent) error {
	return s.absorb(ctx, KindStockAddition, event, s.hooks.HandleStockAddition(ctx, event))
}

func (s *SideChannel) StockDecrease(ctx context.Context, event integration.StockDecreaseEvent) error {
	return s.absorb(ctx, KindStockDecrease, event, s.hooks.HandleStockDecrease(ctx, event))
}

func (s *SideChannel) ExpensePaid(ctx context.Context, event integration.ExpensePaidEvent) error {
	return s.absorb(ctx, KindExpensePaid, event, s.hooks.HandleExpensePaid(ctx, event))
}

func (s *SideChannel) PurchaseReturn(ctx context.Context, event integration.PurchaseReturnEvent) error {
	return s.absorb(ctx, KindPurchaseReturn, event, s.hooks.HandlePurchaseReturn(ctx, event))
}

func (s *SideChannel) SalesReturn(ctx context.Context, event integration.SalesReturnEvent) error {
	return s.absorb(ctx, KindSalesReturn, event, s.hooks.HandleSalesReturn(ctx, event))
}

func (s *SideChannel) absorb(ctx context.Context, kind string, event any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrValidation) {
		return err
	}
	payload, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return marshalErr
	}
	record, storeErr := s.store.Append(ctx, kind, payload, err.Error())
	if storeErr != nil {
		// Nowhere left to park it; the caller has to know.
		return fmt.Errorf("park %s event: %w", kind, storeErr)
	}
	if queueErr := s.queue.EnqueueRetry(ctx, record.ID); queueErr != nil {
		s.log.Warn("outbox retry not scheduled, dispatcher will pick it up",
			slog.Int64("record_id", record.ID), slog.String("error", queueErr.Error()))
	}
	s.log.Warn("ledger posting parked for retry",
		slog.String("kind", kind), slog.Int64("record_id", record.ID), slog.String("error", err.Error()))
	return nil
}

// Dispatch replays one parked record through its hook. Called by the retry
// worker; success marks the record done, repeated failure eventually marks
// it FAILED for manual review.
func (s *SideChannel) Dispatch(ctx context.Context, record Record) error {
	err := s.replay(ctx, record)
	if err == nil {
		return s.store.MarkDone(ctx, record.ID)
	}
	if record.Attempts+1 >= MaxAttempts {
		if markErr := s.store.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			return markErr
		}
		s.log.Error("outbox record exhausted retries",
			slog.Int64("record_id", record.ID), slog.String("error", err.Error()))
		return nil
	}
	if markErr := s.store.MarkRetry(ctx, record.ID, err.Error()); markErr != nil {
		return markErr
	}
	return err
}

func (s *SideChannel) replay(ctx context.Context, record Record) error {
	switch record.Kind {
	case KindStockAddition:
		var event integration.StockAdditionEvent
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return err
		}
		return s.hooks.HandleStockAddition(ctx, event)
	case KindStockDecrease:
		var event integration.StockDecreaseEvent
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return err
		}
		return s.hooks.HandleStockDecrease(ctx, event)
	case KindExpensePaid:
		var event integration.ExpensePaidEvent
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return err
		}
		return s.hooks.HandleExpensePaid(ctx, event)
	case KindPurchaseReturn:
		var event integration.PurchaseReturnEvent
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return err
		}
		return s.hooks.HandlePurchaseReturn(ctx, event)
	case KindSalesReturn:
		var event integration.SalesReturnEvent
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return err
		}
		return s.hooks.HandleSalesReturn(ctx, event)
	default:
		return fmt.Errorf("unknown outbox kind %q", record.Kind)
	}
}
