package domain

import "testing"

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusDelivered, StatusRefunded, true},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		if got := OrderTransitions.Allows(tt.from, tt.to); got != tt.want {
			t.Fatalf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !OrderTransitions.Knows(StatusRefunded) || OrderTransitions.Knows(StatusInTransit) {
		t.Fatalf("unexpected Knows result")
	}
}

func TestShippingTransitions(t *testing.T) {
	if !ShippingTransitions.Allows(StatusInTransit, StatusReturned) {
		t.Fatalf("expected in-transit shipments to be returnable")
	}
	if PaymentTransitions.Allows(StatusFailed, StatusCompleted) {
		t.Fatalf("failed payments are terminal")
	}
}
