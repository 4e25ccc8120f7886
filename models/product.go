package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Brand struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	FoundedYear int       `json:"founded_year"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID              int             `json:"id"`
	BrandID         int             `json:"brand_id"`
	BrandName       string          `json:"brand_name"`
	Name            string          `json:"name"`
	ReferenceNumber string          `json:"reference_number"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	StockQuantity   int             `json:"stock_quantity"`
	ImageURL        string          `json:"image_url"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CreateProductRequest struct {
	BrandID         int             `json:"brand_id" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	ReferenceNumber string          `json:"reference_number" binding:"required"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price" binding:"required"`
	StockQuantity   int             `json:"stock_quantity" binding:"gte=0"`
	ImageURL        string          `json:"image_url"`
}

type UpdateProductRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity *int            `json:"stock_quantity" binding:"omitempty,gte=0"`
	ImageURL      string          `json:"image_url"`
}

type CreateBrandRequest struct {
	Name        string `json:"name" binding:"required"`
	Country     string `json:"country"`
	FoundedYear int    `json:"founded_year"`
}
