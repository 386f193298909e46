package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EventKey identifies a delivery across producers, whose outbox ids may collide.
func EventKey(topic string, eventID int64) string {
	return fmt.Sprintf("%s:%d", topic, eventID)
}

// ProcessWithDeduplication runs action at most once per eventKey. The key is
// claimed inside a transaction that commits only after action succeeds, so a
// failed action leaves the key free for redelivery.
func ProcessWithDeduplication(
	ctx context.Context,
	pool TxBeginner,
	logger *zap.Logger,
	eventKey string,
	action func() error,
) error {
	span := trace.SpanFromContext(ctx)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(shutdownCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(
				shutdownCtx,
				logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	query := `
		INSERT INTO processed_events (event_key)
		VALUES ($1)
	`

	_, err = tx.Exec(ctx, query, eventKey)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			mylogger.Info(
				ctx,
				logger,
				"Event already processed, skipping",
				zap.String("event_key", eventKey),
			)

			return nil
		}

		span.RecordError(err)
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err = action()
		if err == nil {
			break
		}

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
	}

	if err != nil {
		mylogger.Error(ctx, logger, "Failed to process event after retries", zap.String("event_key", eventKey), zap.Error(err))

		return fmt.Errorf("failed to process event %s: %w", eventKey, err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			logger,
			"Failed to commit transaction",
			zap.Error(err),
		)

		return fmt.Errorf("failed to record processed event %s: %w", eventKey, err)
	}

	return nil
}
