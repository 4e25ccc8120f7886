// Package checkout owns the order-creation and cancellation workflows. It is
// the only code that writes orders and product stock together, and it does so
// inside a single transaction with the product rows locked.
package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"watchstore/models"
	"watchstore/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTimeout bounds the whole checkout transaction, lock waits included.
const DefaultTimeout = 5 * time.Second

type Service struct {
	db      *sql.DB
	logger  *zap.Logger
	timeout time.Duration
}

func NewService(db *sql.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger, timeout: DefaultTimeout}
}

// productSnapshot is the catalog state re-read under the row lock.
type productSnapshot struct {
	name            string
	referenceNumber string
	stock           int
}

// PlaceOrder validates the request, then atomically writes the order header,
// both address rows and all line items while decrementing stock. Either every
// row lands or none do.
func (s *Service) PlaceOrder(ctx context.Context, userID int, req *models.CheckoutRequest) (*models.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin checkout transaction", zap.Error(err), zap.Int("user_id", userID))
		return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// Re-read stock under FOR UPDATE so two concurrent checkouts cannot both
	// pass validation against the same units.
	snapshots := make(map[int]productSnapshot, len(req.Items))
	var outOfStock []string
	for _, item := range req.Items {
		var snap productSnapshot
		err := tx.QueryRowContext(ctx,
			"SELECT name, reference_number, stock_quantity FROM products WHERE id = $1 FOR UPDATE",
			item.ID,
		).Scan(&snap.name, &snap.referenceNumber, &snap.stock)
		if err == sql.ErrNoRows {
			outOfStock = append(outOfStock, fmt.Sprintf("%s is no longer available", item.Name))
			continue
		}
		if err != nil {
			s.logger.Error("Failed to read product stock", zap.Error(err), zap.Int("product_id", item.ID))
			return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
		}
		if snap.stock < item.Quantity {
			outOfStock = append(outOfStock,
				fmt.Sprintf("%s (requested %d, available %d)", snap.name, item.Quantity, snap.stock))
			continue
		}
		snapshots[item.ID] = snap
	}
	if len(outOfStock) > 0 {
		return nil, &Error{
			Code:    CodeOutOfStock,
			Message: "some items are out of stock",
			Items:   outOfStock,
		}
	}

	lines := make([]pricing.Line, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity})
	}
	totals := pricing.Calculate(lines, req.DiscountRate, shippingMethod(req))

	order := &models.Order{
		OrderNumber:    GenerateOrderNumber(),
		UserID:         userID,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		PaymentMethod:  paymentMethod(req),
		ShippingMethod: shippingMethod(req),
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		ShippingAmount: totals.ShippingAmount,
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.TotalAmount,
		Currency:       currency(req),
		Notes:          req.Notes,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, user_id, status, payment_status, payment_method, shipping_method,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount, currency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		order.OrderNumber, order.UserID, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.ShippingMethod, order.Subtotal, order.TaxAmount, order.ShippingAmount,
		order.DiscountAmount, order.TotalAmount, order.Currency, order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		s.logger.Error("Failed to insert order", zap.Error(err), zap.Int("user_id", userID))
		return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
	}

	// Billing defaults to a copy of shipping, so every order carries exactly
	// one row of each type.
	billing := req.BillingAddress
	if billing == nil {
		billing = req.ShippingAddress
	}
	shippingRow, err := s.insertAddress(ctx, tx, order.ID, models.AddressTypeShipping, req.ShippingAddress)
	if err != nil {
		s.logger.Error("Failed to insert shipping address", zap.Error(err), zap.Int("order_id", order.ID))
		return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
	}
	billingRow, err := s.insertAddress(ctx, tx, order.ID, models.AddressTypeBilling, billing)
	if err != nil {
		s.logger.Error("Failed to insert billing address", zap.Error(err), zap.Int("order_id", order.ID))
		return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
	}
	order.Addresses = []models.OrderAddress{shippingRow, billingRow}

	for _, item := range req.Items {
		snap := snapshots[item.ID]
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, brand_name, reference_number,
				image_url, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			order.ID, item.ID, snap.name, item.Brand, snap.referenceNumber,
			item.ImageURL, item.Quantity, item.Price, lineTotal,
		)
		if err != nil {
			s.logger.Error("Failed to insert order item", zap.Error(err),
				zap.Int("order_id", order.ID), zap.Int("product_id", item.ID))
			return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			item.Quantity, item.ID,
		)
		if err != nil {
			s.logger.Error("Failed to decrement stock", zap.Error(err),
				zap.Int("order_id", order.ID), zap.Int("product_id", item.ID))
			return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
		}

		order.Items = append(order.Items, models.OrderItem{
			OrderID:         order.ID,
			ProductID:       item.ID,
			ProductName:     snap.name,
			BrandName:       item.Brand,
			ReferenceNumber: snap.referenceNumber,
			ImageURL:        item.ImageURL,
			Quantity:        item.Quantity,
			UnitPrice:       item.Price,
			TotalPrice:      lineTotal,
		})
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit checkout transaction", zap.Error(err), zap.Int("order_id", order.ID))
		return nil, newError(CodeOrderCreationFailed, "failed to create order, please try again")
	}
	committed = true

	s.logger.Info("Order placed",
		zap.Int("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("user_id", userID),
		zap.String("total_amount", order.TotalAmount.String()),
	)
	return order, nil
}

func (s *Service) insertAddress(ctx context.Context, tx *sql.Tx, orderID int, addrType models.AddressType, a *models.AddressInput) (models.OrderAddress, error) {
	row := models.OrderAddress{
		OrderID:      orderID,
		Type:         addrType,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
	err := tx.QueryRowContext(ctx,
		`INSERT INTO order_addresses (order_id, address_type, first_name, last_name, company,
			address_line_1, address_line_2, city, state, postal_code, country, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		row.OrderID, row.Type, row.FirstName, row.LastName, row.Company,
		row.AddressLine1, row.AddressLine2, row.City, row.State, row.PostalCode,
		row.Country, row.Phone,
	).Scan(&row.ID)
	return row, err
}

// validateRequest runs every check that needs no transaction, so bad input
// fails before any database work.
func validateRequest(req *models.CheckoutRequest) *Error {
	if len(req.Items) == 0 {
		return newError(CodeEmptyCart, "cart is empty")
	}
	if req.ShippingAddress == nil {
		return newError(CodeInvalidAddress, "shipping address is required")
	}
	if field := missingAddressField(req.ShippingAddress); field != "" {
		return newError(CodeInvalidAddress, fmt.Sprintf("shipping address is missing %s", field))
	}
	if req.BillingAddress != nil {
		if field := missingAddressField(req.BillingAddress); field != "" {
			return newError(CodeInvalidAddress, fmt.Sprintf("billing address is missing %s", field))
		}
	}
	return nil
}

func missingAddressField(a *models.AddressInput) string {
	required := []struct {
		name  string
		value string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"address_line_1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if f.value == "" {
			return f.name
		}
	}
	return ""
}

func shippingMethod(req *models.CheckoutRequest) string {
	if req.ShippingMethod == "" {
		return pricing.MethodStandard
	}
	return req.ShippingMethod
}

func paymentMethod(req *models.CheckoutRequest) string {
	if req.PaymentMethod == "" {
		return "card"
	}
	return req.PaymentMethod
}

func currency(req *models.CheckoutRequest) string {
	if req.Currency == "" {
		return "USD"
	}
	return req.Currency
}
