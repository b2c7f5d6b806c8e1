package audit

import "testing"

func TestNew(t *testing.T) {
	tx := New("tx-1", 42, 7, 19.99, StatusSuccess)
	if tx.Status != StatusSuccess {
		t.Errorf("expected status SUCCESS, got %v", tx.Status)
	}
	if tx.ProcessedAt.IsZero() {
		t.Error("processed_at must be set")
	}
	if tx.OrderID != 42 || tx.UserID != 7 {
		t.Error("order/user id must be preserved")
	}
}
