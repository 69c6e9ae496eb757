// Package worker moves recorded transactions from the local store to the
// external sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/export"
	"tally/internal/storage"
)

// ExportWorker drains the export queue. AMQP messages drive the common
// path; ProcessPending is the recovery path for messages lost while the
// worker was down.
type ExportWorker struct {
	store     storage.Store
	queue     storage.ExportQueue
	sheet     export.RowWriter
	batchSize int
}

func NewExportWorker(store storage.Store, queue storage.ExportQueue, sheet export.RowWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		store:     store,
		queue:     queue,
		sheet:     sheet,
		batchSize: batchSize,
	}
}

// HandleRecorded processes one recorded event. The returned error decides
// whether the delivery is requeued, so rows deleted since the message was
// published are treated as done, not failed.
func (w *ExportWorker) HandleRecorded(msg *amqp.TransactionRecordedMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := w.store.Get(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Recorded transaction no longer exists, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	return w.exportOne(ctx, tx)
}

// ProcessPending exports up to one batch of rows the queue still holds.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.queue.ListUnexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	var exported, failed int
	for _, tx := range pending {
		if err := w.exportOne(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", tx.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Pending export pass completed",
		"total", len(pending),
		"exported", exported,
		"failed", failed)
	return nil
}

func (w *ExportWorker) exportOne(ctx context.Context, tx core.Transaction) error {
	ref, err := w.sheet.AppendTransaction(ctx, tx)
	if err != nil {
		if markErr := w.queue.MarkExportError(ctx, tx.ID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.queue.MarkExported(ctx, tx.ID); err != nil {
		// The append succeeded; the row will be retried and may duplicate,
		// which beats losing it.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", tx.ID,
		"sheet_ref", ref,
		"amount_cents", tx.Amount.Cents)
	return nil
}
