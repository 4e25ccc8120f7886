package checkout

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"watchstore/models"

	"github.com/DATA-DOG/go-sqlmock"
)

const statusLockQuery = "SELECT status FROM orders WHERE id = \\$1 FOR UPDATE"

func TestUpdateStatus_PendingToProcessing(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(statusLockQuery).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec("UPDATE orders SET status = \\$1, updated_at").
		WithArgs("processing", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.UpdateStatus(context.Background(), 7, models.OrderStatusProcessing, ""); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestUpdateStatus_ShippedStampsTracking(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(statusLockQuery).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("processing"))
	mock.ExpectExec("UPDATE orders SET status = \\$1, tracking_number = \\$2, shipped_at").
		WithArgs("shipped", "1Z999AA10123456784", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.UpdateStatus(context.Background(), 7, models.OrderStatusShipped, "1Z999AA10123456784"); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	tests := []struct {
		current string
		next    models.OrderStatus
	}{
		{"pending", models.OrderStatusDelivered},
		{"delivered", models.OrderStatusProcessing},
		{"cancelled", models.OrderStatusShipped},
		{"pending", models.OrderStatusCancelled}, // cancellation has its own workflow
	}

	for _, tt := range tests {
		t.Run(tt.current+"_to_"+string(tt.next), func(t *testing.T) {
			svc, mock := newTestService(t)

			mock.ExpectBegin()
			mock.ExpectQuery(statusLockQuery).
				WithArgs(7).
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(tt.current))
			mock.ExpectRollback()

			err := svc.UpdateStatus(context.Background(), 7, tt.next, "")
			var cerr *Error
			if !errors.As(err, &cerr) || cerr.Code != CodeInvalidState {
				t.Fatalf("Expected INVALID_STATE, got %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Database expectations were not met: %v", err)
			}
		})
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(statusLockQuery).
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := svc.UpdateStatus(context.Background(), 999, models.OrderStatusProcessing, "")
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Code != CodeNotFound {
		t.Fatalf("Expected NOT_FOUND, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc, mock := newTestService(t)

	// Rejected before any database work.
	err := svc.UpdateStatus(context.Background(), 7, models.OrderStatus("misplaced"), "")
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Code != CodeInvalidState {
		t.Fatalf("Expected INVALID_STATE, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
