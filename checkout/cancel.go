package checkout

import (
	"context"
	"database/sql"

	"watchstore/models"

	"go.uber.org/zap"
)

// CancelOrder cancels one of the caller's own orders while it is still
// pending or processing, restoring the stock of every line item in the same
// transaction. Returns the product ids whose stock was restored so callers
// can invalidate caches; the count is the customer-facing result.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID int) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin cancellation transaction", zap.Error(err), zap.Int("order_id", orderID))
		return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var status models.OrderStatus
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE",
		orderID, userID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, newError(CodeNotFound, "order not found")
	}
	if err != nil {
		s.logger.Error("Failed to read order for cancellation", zap.Error(err), zap.Int("order_id", orderID))
		return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
	}
	if !status.Cancellable() {
		return nil, newError(CodeInvalidState, "order can no longer be cancelled")
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT product_id, quantity FROM order_items WHERE order_id = $1",
		orderID,
	)
	if err != nil {
		s.logger.Error("Failed to read order items for cancellation", zap.Error(err), zap.Int("order_id", orderID))
		return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
	}
	type restock struct{ productID, quantity int }
	var restocks []restock
	for rows.Next() {
		var r restock
		if err := rows.Scan(&r.productID, &r.quantity); err != nil {
			rows.Close()
			s.logger.Error("Failed to scan order item", zap.Error(err), zap.Int("order_id", orderID))
			return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
		}
		restocks = append(restocks, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		s.logger.Error("Failed to iterate order items", zap.Error(err), zap.Int("order_id", orderID))
		return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
	}

	for _, r := range restocks {
		_, err = tx.ExecContext(ctx,
			"UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			r.quantity, r.productID,
		)
		if err != nil {
			s.logger.Error("Failed to restore stock", zap.Error(err),
				zap.Int("order_id", orderID), zap.Int("product_id", r.productID))
			return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		models.OrderStatusCancelled, orderID,
	)
	if err != nil {
		s.logger.Error("Failed to mark order cancelled", zap.Error(err), zap.Int("order_id", orderID))
		return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit cancellation", zap.Error(err), zap.Int("order_id", orderID))
		return nil, newError(CodeOrderCreationFailed, "failed to cancel order, please try again")
	}
	committed = true

	s.logger.Info("Order cancelled",
		zap.Int("order_id", orderID),
		zap.Int("user_id", userID),
		zap.Int("restored_items", len(restocks)),
	)
	restored := make([]int, 0, len(restocks))
	for _, r := range restocks {
		restored = append(restored, r.productID)
	}
	return restored, nil
}
