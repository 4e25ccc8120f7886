package checkout

import (
	"context"
	"database/sql"
	"fmt"

	"watchstore/models"

	"go.uber.org/zap"
)

// UpdateStatus performs an admin status transition. Only the moves allowed by
// the status machine are accepted; shipped_at and delivered_at are stamped
// when the order enters those states.
func (s *Service) UpdateStatus(ctx context.Context, orderID int, next models.OrderStatus, trackingNumber string) error {
	if !next.Valid() {
		return newError(CodeInvalidState, fmt.Sprintf("unknown order status %q", next))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin status transaction", zap.Error(err), zap.Int("order_id", orderID))
		return newError(CodeOrderCreationFailed, "failed to update order, please try again")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var current models.OrderStatus
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return newError(CodeNotFound, "order not found")
	}
	if err != nil {
		s.logger.Error("Failed to read order status", zap.Error(err), zap.Int("order_id", orderID))
		return newError(CodeOrderCreationFailed, "failed to update order, please try again")
	}
	if !current.CanTransitionTo(next) {
		return newError(CodeInvalidState, fmt.Sprintf("cannot move order from %s to %s", current, next))
	}

	switch next {
	case models.OrderStatusShipped:
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, tracking_number = $2, shipped_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = $3",
			next, trackingNumber, orderID,
		)
	case models.OrderStatusDelivered:
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, delivered_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			next, orderID,
		)
	default:
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			next, orderID,
		)
	}
	if err != nil {
		s.logger.Error("Failed to update order status", zap.Error(err), zap.Int("order_id", orderID))
		return newError(CodeOrderCreationFailed, "failed to update order, please try again")
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit status update", zap.Error(err), zap.Int("order_id", orderID))
		return newError(CodeOrderCreationFailed, "failed to update order, please try again")
	}
	committed = true

	s.logger.Info("Order status updated",
		zap.Int("order_id", orderID),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
	)
	return nil
}
