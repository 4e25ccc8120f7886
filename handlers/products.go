package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"watchstore/cache"
	"watchstore/circuitbreaker"
	"watchstore/models"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProductHandler struct {
	db             *sql.DB
	redisClient    *redis.Client
	logger         *zap.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewProductHandler(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
	}
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "GetProducts")
	defer span.End()

	rows, err := h.db.QueryContext(ctx,
		`SELECT p.id, p.brand_id, b.name, p.name, p.reference_number, p.description,
			p.price, p.stock_quantity, p.image_url, p.created_at, p.updated_at
		FROM products p JOIN brands b ON p.brand_id = b.id
		ORDER BY p.id`)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var description, imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.BrandID, &p.BrandName, &p.Name, &p.ReferenceNumber,
			&description, &p.Price, &p.StockQuantity, &imageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan product", zap.Error(err))
			continue
		}
		p.Description = description.String
		p.ImageURL = imageURL.String
		products = append(products, p)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	// Try to get from cache first
	if h.redisClient != nil {
		cachedData, err := cache.GetProduct(ctx, h.redisClient, id)
		if err == nil {
			var product models.Product
			if err := json.Unmarshal(cachedData, &product); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				c.JSON(http.StatusOK, product)
				return
			}
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var product models.Product
	var description, imageURL sql.NullString
	dbErr := h.circuitBreaker.Execute(ctx, func() error {
		return h.db.QueryRowContext(ctx,
			`SELECT p.id, p.brand_id, b.name, p.name, p.reference_number, p.description,
				p.price, p.stock_quantity, p.image_url, p.created_at, p.updated_at
			FROM products p JOIN brands b ON p.brand_id = b.id
			WHERE p.id = $1`,
			id,
		).Scan(&product.ID, &product.BrandID, &product.BrandName, &product.Name,
			&product.ReferenceNumber, &description, &product.Price, &product.StockQuantity,
			&imageURL, &product.CreatedAt, &product.UpdatedAt)
	})

	if dbErr != nil {
		if errors.Is(dbErr, circuitbreaker.ErrCircuitOpen) {
			span.SetAttributes(attribute.String("circuit.state", "open"))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		if errors.Is(dbErr, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		span.RecordError(dbErr)
		h.logger.Error("Failed to fetch product", zap.Error(dbErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	product.Description = description.String
	product.ImageURL = imageURL.String

	if h.redisClient != nil {
		cache.SetProduct(ctx, h.redisClient, id, product, 5*time.Minute)
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "CreateProduct")
	defer span.End()

	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Price.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be positive"})
		return
	}

	var product models.Product
	err := h.db.QueryRowContext(ctx,
		`INSERT INTO products (brand_id, name, reference_number, description, price, stock_quantity, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		req.BrandID, req.Name, req.ReferenceNumber, req.Description, req.Price, req.StockQuantity, req.ImageURL,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	product.BrandID = req.BrandID
	product.Name = req.Name
	product.ReferenceNumber = req.ReferenceNumber
	product.Description = req.Description
	product.Price = req.Price
	product.StockQuantity = req.StockQuantity
	product.ImageURL = req.ImageURL

	span.SetAttributes(attribute.Int("product.id", product.ID))
	h.logger.Info("Product created", zap.Int("product_id", product.ID))
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "UpdateProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.db.ExecContext(ctx,
		`UPDATE products SET
			name = COALESCE(NULLIF($1, ''), name),
			description = COALESCE(NULLIF($2, ''), description),
			price = CASE WHEN $3::numeric > 0 THEN $3::numeric ELSE price END,
			stock_quantity = COALESCE($4, stock_quantity),
			image_url = COALESCE(NULLIF($5, ''), image_url),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $6`,
		req.Name, req.Description, req.Price, req.StockQuantity, req.ImageURL, id,
	)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to update product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if h.redisClient != nil {
		cache.DeleteProduct(ctx, h.redisClient, id)
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "updated": true})
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "DeleteProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	result, err := h.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to delete product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if h.redisClient != nil {
		cache.DeleteProduct(ctx, h.redisClient, id)
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}
