package account

import "testing"

func TestNew(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected error for non-positive user id")
	}
	a, err := New(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Balance != 0 {
		t.Errorf("expected zero balance, got %v", a.Balance)
	}
}

func TestTopUp(t *testing.T) {
	a, _ := New(7)
	if err := a.TopUp(100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.TopUp(50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Balance != 150 {
		t.Errorf("expected balance 150 after two top-ups, got %v", a.Balance)
	}
	if err := a.TopUp(0); err == nil {
		t.Error("expected error for non-positive top-up amount")
	}
}

func TestDebit(t *testing.T) {
	t.Run("exact balance succeeds and leaves zero", func(t *testing.T) {
		a, _ := New(7)
		a.TopUp(100)
		if err := a.Debit(100); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Balance != 0 {
			t.Errorf("expected balance 0, got %v", a.Balance)
		}
	})

	t.Run("one unit short fails without mutation", func(t *testing.T) {
		a, _ := New(7)
		a.TopUp(99)
		if err := a.Debit(100); err == nil {
			t.Fatal("expected insufficient funds error")
		}
		if a.Balance != 99 {
			t.Errorf("balance must be unchanged on rejected debit, got %v", a.Balance)
		}
	})
}
