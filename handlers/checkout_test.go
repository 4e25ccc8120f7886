package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"watchstore/checkout"
	"watchstore/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// asUser stands in for the auth middleware in tests.
func asUser(id int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

func setupCheckoutTest(t *testing.T, authed bool) (sqlmock.Sqlmock, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	svc := checkout.NewService(db, logger)
	// Producer and cache are nil: event publication and invalidation are
	// post-commit side effects and must not affect the response.
	handler := NewCheckoutHandler(svc, nil, nil, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	if authed {
		router.POST("/checkout", asUser(42), handler.Checkout)
		router.POST("/orders/:id/cancel", asUser(42), handler.CancelOrder)
	} else {
		router.POST("/checkout", handler.Checkout)
		router.POST("/orders/:id/cancel", handler.CancelOrder)
	}

	return mock, router
}

func checkoutBody() []byte {
	body, _ := json.Marshal(models.CheckoutRequest{
		Items: []models.CartItem{
			{ID: 1, Name: "Submariner Date", Brand: "Rolex", Price: decimal.NewFromInt(15000), Quantity: 1},
		},
		ShippingAddress: &models.AddressInput{
			FirstName:    "John",
			LastName:     "Doe",
			AddressLine1: "1 Rue du Rhone",
			City:         "Geneva",
			State:        "GE",
			PostalCode:   "1204",
			Country:      "CH",
		},
		ShippingMethod: "standard",
	})
	return body
}

func TestCheckout_Success(t *testing.T) {
	mock, router := setupCheckoutTest(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, reference_number, stock_quantity FROM products WHERE id = \\$1 FOR UPDATE").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name", "reference_number", "stock_quantity"}).
			AddRow("Submariner Date", "126610LN", 3))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(7, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO order_addresses").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery("INSERT INTO order_addresses").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity - \\$1").
		WithArgs(1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBuffer(checkoutBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var resp models.CheckoutResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Errorf("Expected success=true")
	}
	if resp.Order.ID != 7 || resp.Order.ItemsCount != 1 {
		t.Errorf("Unexpected order summary: %+v", resp.Order)
	}
	if !resp.Order.TotalAmount.Equal(decimal.NewFromInt(16200)) {
		t.Errorf("Expected total 16200, got %s", resp.Order.TotalAmount)
	}
	if resp.Order.Status != models.OrderStatusPending {
		t.Errorf("Expected pending status, got %s", resp.Order.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCheckout_NotAuthenticated(t *testing.T) {
	_, router := setupCheckoutTest(t, false)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBuffer(checkoutBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestCheckout_OutOfStockResponse(t *testing.T) {
	mock, router := setupCheckoutTest(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, reference_number, stock_quantity FROM products WHERE id = \\$1 FOR UPDATE").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name", "reference_number", "stock_quantity"}).
			AddRow("Submariner Date", "126610LN", 0))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBuffer(checkoutBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}

	var resp struct {
		Code  string   `json:"code"`
		Items []string `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Code != string(checkout.CodeOutOfStock) {
		t.Errorf("Expected OUT_OF_STOCK code, got %s", resp.Code)
	}
	if len(resp.Items) != 1 {
		t.Errorf("Expected 1 offending item, got %v", resp.Items)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCheckout_InvalidJSON(t *testing.T) {
	_, router := setupCheckoutTest(t, true)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCancelOrder_Response(t *testing.T) {
	mock, router := setupCheckoutTest(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1 AND user_id = \\$2 FOR UPDATE").
		WithArgs(7, 42).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectQuery("SELECT product_id, quantity FROM order_items WHERE order_id = \\$1").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(1, 2))
	mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity \\+ \\$1").
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status = \\$1").
		WithArgs("cancelled", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/orders/7/cancel", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp models.CancelOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.RestoredItems != 1 {
		t.Errorf("Expected 1 restored item, got %d", resp.RestoredItems)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCancelOrder_InvalidState(t *testing.T) {
	mock, router := setupCheckoutTest(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1 AND user_id = \\$2 FOR UPDATE").
		WithArgs(7, 42).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("delivered"))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodPost, "/orders/7/cancel", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d", http.StatusConflict, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
