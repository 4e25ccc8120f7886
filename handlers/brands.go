package handlers

import (
	"database/sql"
	"net/http"

	"watchstore/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type BrandHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewBrandHandler(db *sql.DB, logger *zap.Logger) *BrandHandler {
	return &BrandHandler{db: db, logger: logger}
}

func (h *BrandHandler) GetBrands(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "GetBrands")
	defer span.End()

	rows, err := h.db.QueryContext(ctx,
		"SELECT id, name, country, founded_year, created_at FROM brands ORDER BY name")
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch brands", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	var brands []models.Brand
	for rows.Next() {
		var b models.Brand
		var country sql.NullString
		var foundedYear sql.NullInt64
		if err := rows.Scan(&b.ID, &b.Name, &country, &foundedYear, &b.CreatedAt); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan brand", zap.Error(err))
			continue
		}
		b.Country = country.String
		b.FoundedYear = int(foundedYear.Int64)
		brands = append(brands, b)
	}

	span.SetAttributes(attribute.Int("brands.count", len(brands)))
	c.JSON(http.StatusOK, brands)
}

func (h *BrandHandler) CreateBrand(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "CreateBrand")
	defer span.End()

	var req models.CreateBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var brand models.Brand
	err := h.db.QueryRowContext(ctx,
		"INSERT INTO brands (name, country, founded_year) VALUES ($1, $2, $3) RETURNING id, created_at",
		req.Name, req.Country, req.FoundedYear,
	).Scan(&brand.ID, &brand.CreatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create brand", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	brand.Name = req.Name
	brand.Country = req.Country
	brand.FoundedYear = req.FoundedYear

	span.SetAttributes(attribute.Int("brand.id", brand.ID))
	h.logger.Info("Brand created", zap.Int("brand_id", brand.ID))
	c.JSON(http.StatusCreated, brand)
}
