package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("confirmed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got)
	}
	if _, err := ParseOrderStatus("cancelled"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusQuotation, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusQuotation, false},
		{OrderStatusConfirmed, OrderStatusConfirmed, false},
		{OrderStatusQuotation, OrderStatusQuotation, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.want, got)
		}
	}
	if !OrderStatusQuotation.Mutable() || OrderStatusConfirmed.Mutable() {
		t.Fatalf("only quotations are mutable")
	}
}
