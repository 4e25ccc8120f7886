package models

import "github.com/shopspring/decimal"

// CartItem is the client-side snapshot of a product at the moment it was added
// to the cart. Price and names are copied into the order item on commit; stock
// is always re-read server-side.
type CartItem struct {
	ID       int             `json:"id" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price" binding:"required"`
	Quantity int             `json:"quantity" binding:"required,gte=1"`
	ImageURL string          `json:"image_url"`
}

type AddressInput struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

type CheckoutRequest struct {
	Items           []CartItem      `json:"items" binding:"omitempty,dive"`
	ShippingAddress *AddressInput   `json:"shipping_address"`
	BillingAddress  *AddressInput   `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingMethod  string          `json:"shipping_method" binding:"omitempty,oneof=standard express overnight"`
	DiscountRate    decimal.Decimal `json:"discount_rate"`
	Notes           string          `json:"notes"`
	Currency        string          `json:"currency"`
}

type OrderSummary struct {
	ID            int             `json:"id"`
	OrderNumber   string          `json:"order_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Currency      string          `json:"currency"`
	ItemsCount    int             `json:"items_count"`
}

type CheckoutResponse struct {
	Success bool         `json:"success"`
	Order   OrderSummary `json:"order"`
}

type CancelOrderResponse struct {
	RestoredItems int `json:"restored_items"`
}
