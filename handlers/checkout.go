package handlers

import (
	"context"
	"net/http"
	"strconv"

	"watchstore/cache"
	"watchstore/checkout"
	"watchstore/kafka"
	"watchstore/middleware"
	"watchstore/models"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const orderEventsTopic = "order_events"

type CheckoutHandler struct {
	svc         *checkout.Service
	producer    sarama.SyncProducer
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewCheckoutHandler(svc *checkout.Service, producer sarama.SyncProducer, redisClient *redis.Client, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		svc:         svc,
		producer:    producer,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (h *CheckoutHandler) Checkout(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "Checkout")
	defer span.End()

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": checkout.CodeNotAuthenticated})
		return
	}
	span.SetAttributes(attribute.Int("user_id", userID))

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("cart.items", len(req.Items)))

	order, err := h.svc.PlaceOrder(ctx, userID, &req)
	if err != nil {
		cerr := checkout.AsError(err)
		middleware.RecordOrderPlaced(string(cerr.Code))
		span.SetAttributes(attribute.String("checkout.error", string(cerr.Code)))
		body := gin.H{"error": cerr.Message, "code": cerr.Code}
		if len(cerr.Items) > 0 {
			body["items"] = cerr.Items
		}
		c.JSON(statusForCode(cerr.Code), body)
		return
	}

	middleware.RecordOrderPlaced("success")
	span.SetAttributes(attribute.Int("order.id", order.ID))

	h.publishEvent(ctx, order, "order_created")
	h.invalidateProducts(ctx, order.Items)

	// Payment is simulated: a background worker publishes the outcome event
	// and the Kafka consumer applies it to payment_status.
	go h.processPayment(order)

	c.JSON(http.StatusCreated, models.CheckoutResponse{
		Success: true,
		Order: models.OrderSummary{
			ID:            order.ID,
			OrderNumber:   order.OrderNumber,
			TotalAmount:   order.TotalAmount,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Currency:      order.Currency,
			ItemsCount:    len(order.Items),
		},
	})
}

func (h *CheckoutHandler) CancelOrder(c *gin.Context) {
	ctx, span := otel.Tracer("watchstore").Start(c.Request.Context(), "CancelOrder")
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

	restored, err := h.svc.CancelOrder(ctx, orderID, userID)
	if err != nil {
		cerr := checkout.AsError(err)
		span.SetAttributes(attribute.String("cancel.error", string(cerr.Code)))
		c.JSON(statusForCode(cerr.Code), gin.H{"error": cerr.Message, "code": cerr.Code})
		return
	}

	middleware.RecordOrderCancelled()

	if h.producer != nil {
		event := models.OrderEvent{
			OrderID:   orderID,
			UserID:    userID,
			Status:    models.OrderStatusCancelled,
			EventType: "order_cancelled",
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, orderEventsTopic, event, h.logger); err != nil {
			h.logger.Error("Failed to publish order_cancelled event", zap.Error(err))
		}
	}
	for _, productID := range restored {
		h.invalidateProduct(ctx, productID)
	}

	c.JSON(http.StatusOK, models.CancelOrderResponse{RestoredItems: len(restored)})
}

func (h *CheckoutHandler) publishEvent(ctx context.Context, order *models.Order, eventType string) {
	if h.producer == nil {
		return
	}
	event := models.OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount.String(),
		Currency:      order.Currency,
		ItemsCount:    len(order.Items),
		EventType:     eventType,
	}
	if err := kafka.PublishOrderEvent(ctx, h.producer, orderEventsTopic, event, h.logger); err != nil {
		h.logger.Error("Failed to publish order event", zap.Error(err), zap.String("event_type", eventType))
		// Don't fail the request, the order is already committed
	}
}

func (h *CheckoutHandler) invalidateProducts(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		h.invalidateProduct(ctx, item.ProductID)
	}
}

func (h *CheckoutHandler) invalidateProduct(ctx context.Context, productID int) {
	if h.redisClient == nil {
		return
	}
	if err := cache.DeleteProduct(ctx, h.redisClient, strconv.Itoa(productID)); err != nil && err != redis.Nil {
		h.logger.Warn("Failed to invalidate product cache", zap.Error(err), zap.Int("product_id", productID))
	}
}

// processPayment simulates the gateway round trip. Roughly one in five
// payments fails; the consumer picks the event up and stamps payment_status.
func (h *CheckoutHandler) processPayment(order *models.Order) {
	if h.producer == nil {
		return
	}
	event := models.OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount.String(),
		Currency:    order.Currency,
		ItemsCount:  len(order.Items),
	}

	if order.ID%5 == 0 {
		event.EventType = "payment_failed"
		event.PaymentStatus = models.PaymentStatusFailed
	} else {
		event.EventType = "order_paid"
		event.PaymentStatus = models.PaymentStatusPaid
	}

	if err := kafka.PublishOrderEvent(context.Background(), h.producer, orderEventsTopic, event, h.logger); err != nil {
		h.logger.Error("Failed to publish payment event", zap.Error(err))
	}
}

func statusForCode(code checkout.Code) int {
	switch code {
	case checkout.CodeEmptyCart, checkout.CodeInvalidAddress:
		return http.StatusBadRequest
	case checkout.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case checkout.CodeNotFound:
		return http.StatusNotFound
	case checkout.CodeOutOfStock, checkout.CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
