package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// statusTransitions lists the admin-driven moves. Cancellation is not here:
// it must go through the cancellation workflow so stock gets restored.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {OrderStatusRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Cancellable reports whether a customer may still cancel the order.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

type Order struct {
	ID             int             `json:"id"`
	OrderNumber    string          `json:"order_number"`
	UserID         int             `json:"user_id"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentMethod  string          `json:"payment_method"`
	ShippingMethod string          `json:"shipping_method"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ShippedAt      *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	Items          []OrderItem     `json:"items,omitempty"`
	Addresses      []OrderAddress  `json:"addresses,omitempty"`
}

// OrderItem keeps a denormalized snapshot of the product at purchase time so
// historical orders stay stable when the catalog changes.
type OrderItem struct {
	ID              int             `json:"id"`
	OrderID         int             `json:"order_id"`
	ProductID       int             `json:"product_id"`
	ProductName     string          `json:"product_name"`
	BrandName       string          `json:"brand_name"`
	ReferenceNumber string          `json:"reference_number"`
	ImageURL        string          `json:"image_url,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

type OrderAddress struct {
	ID           int         `json:"id"`
	OrderID      int         `json:"order_id"`
	Type         AddressType `json:"address_type"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Company      string      `json:"company,omitempty"`
	AddressLine1 string      `json:"address_line_1"`
	AddressLine2 string      `json:"address_line_2,omitempty"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	PostalCode   string      `json:"postal_code"`
	Country      string      `json:"country"`
	Phone        string      `json:"phone,omitempty"`
}

type OrderEvent struct {
	OrderID       int           `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	UserID        int           `json:"user_id"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   string        `json:"total_amount"`
	Currency      string        `json:"currency"`
	ItemsCount    int           `json:"items_count"`
	EventType     string        `json:"event_type"` // order_created, order_cancelled, order_paid, payment_failed
}

type UpdateOrderStatusRequest struct {
	Status         OrderStatus `json:"status" binding:"required"`
	TrackingNumber string      `json:"tracking_number"`
}
