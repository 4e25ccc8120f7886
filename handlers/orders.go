package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"watchstore/checkout"
	"watchstore/middleware"
	"watchstore/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderHandler struct {
	db     *sql.DB
	svc    *checkout.Service
	logger *zap.Logger
}

func NewOrderHandler(db *sql.DB, svc *checkout.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{db: db, svc: svc, logger: logger}
}

// ListOrders returns the caller's own orders, newest first.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": checkout.CodeNotAuthenticated})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, order_number, status, payment_status, payment_method, shipping_method,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount, currency,
			created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list orders", zap.Error(err), zap.Int("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		o.UserID = userID
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
			&o.ShippingMethod, &o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount,
			&o.TotalAmount, &o.Currency, &o.CreatedAt, &o.UpdatedAt); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan order", zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns one of the caller's orders with its items and addresses.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": checkout.CodeNotAuthenticated})
		return
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", orderID))

	var o models.Order
	var trackingNumber, notes sql.NullString
	err = h.db.QueryRowContext(ctx,
		`SELECT id, order_number, user_id, status, payment_status, payment_method, shipping_method,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount, currency,
			tracking_number, notes, created_at, updated_at, shipped_at, delivered_at
		FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	).Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.ShippingMethod, &o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount,
		&o.TotalAmount, &o.Currency, &trackingNumber, &notes, &o.CreatedAt, &o.UpdatedAt,
		&o.ShippedAt, &o.DeliveredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found", "code": checkout.CodeNotFound})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get order", zap.Error(err), zap.Int("order_id", orderID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	o.TrackingNumber = trackingNumber.String
	o.Notes = notes.String

	items, err := h.loadItems(c, orderID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load order items", zap.Error(err), zap.Int("order_id", orderID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	o.Items = items

	addresses, err := h.loadAddresses(c, orderID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load order addresses", zap.Error(err), zap.Int("order_id", orderID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	o.Addresses = addresses

	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) loadItems(c *gin.Context, orderID int) ([]models.OrderItem, error) {
	rows, err := h.db.QueryContext(c.Request.Context(),
		`SELECT id, order_id, product_id, product_name, brand_name, reference_number,
			image_url, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		var brandName, referenceNumber, imageURL sql.NullString
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &brandName,
			&referenceNumber, &imageURL, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		it.BrandName = brandName.String
		it.ReferenceNumber = referenceNumber.String
		it.ImageURL = imageURL.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func (h *OrderHandler) loadAddresses(c *gin.Context, orderID int) ([]models.OrderAddress, error) {
	rows, err := h.db.QueryContext(c.Request.Context(),
		`SELECT id, order_id, address_type, first_name, last_name, company, address_line_1,
			address_line_2, city, state, postal_code, country, phone
		FROM order_addresses WHERE order_id = $1 ORDER BY address_type DESC`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []models.OrderAddress
	for rows.Next() {
		var a models.OrderAddress
		var company, line2, phone sql.NullString
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Type, &a.FirstName, &a.LastName, &company,
			&a.AddressLine1, &line2, &a.City, &a.State, &a.PostalCode, &a.Country, &phone); err != nil {
			return nil, err
		}
		a.Company = company.String
		a.AddressLine2 = line2.String
		a.Phone = phone.String
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

// UpdateOrderStatus is the admin transition endpoint.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "UpdateOrderStatus")
	defer span.End()

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(
		attribute.Int("order.id", orderID),
		attribute.String("order.status", string(req.Status)),
	)

	if err := h.svc.UpdateStatus(ctx, orderID, req.Status, req.TrackingNumber); err != nil {
		cerr := checkout.AsError(err)
		c.JSON(statusForCode(cerr.Code), gin.H{"error": cerr.Message, "code": cerr.Code})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": orderID, "status": req.Status})
}
