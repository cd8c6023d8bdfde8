package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParcelAdvanceFullLifecycle(t *testing.T) {
	p := &Parcel{ParcelID: "PAR1", Status: StatusPickedUp}
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	if err := p.Advance(StatusInTransit, now, "left hub"); err != nil {
		t.Fatalf("advance to in transit: %v", err)
	}
	if p.Status != StatusInTransit {
		t.Fatalf("status = %v, want %v", p.Status, StatusInTransit)
	}
	if p.DeliveredAt != nil {
		t.Fatalf("DeliveredAt set before delivery: %v", *p.DeliveredAt)
	}

	deliveredAt := now.Add(2 * time.Hour)
	if err := p.Advance(StatusDelivered, deliveredAt, "handed to receiver"); err != nil {
		t.Fatalf("advance to delivered: %v", err)
	}
	if p.DeliveredAt == nil || !p.DeliveredAt.Equal(deliveredAt) {
		t.Fatalf("DeliveredAt = %v, want %v", p.DeliveredAt, deliveredAt)
	}
	if p.Remarks != "left hub | handed to receiver" {
		t.Fatalf("remarks = %q", p.Remarks)
	}
	if p.IsActive() {
		t.Fatal("delivered parcel reported as active")
	}
}

func TestParcelAdvanceRejections(t *testing.T) {
	tests := []struct {
		name      string
		current   Status
		requested Status
		wantErr   error
	}{
		{"skip to delivered", StatusPickedUp, StatusDelivered, ErrIllegalTransition},
		{"repeat current", StatusInTransit, StatusInTransit, ErrIllegalTransition},
		{"regress", StatusInTransit, StatusPickedUp, ErrIllegalTransition},
		{"past terminal", StatusDelivered, StatusDelivered, ErrIllegalTransition},
		{"none skips ahead", StatusNone, StatusInTransit, ErrIllegalTransition},
		{"target none", StatusPickedUp, StatusNone, ErrInvalidStatus},
		{"out of range", StatusPickedUp, Status(42), ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Parcel{ParcelID: "PAR1", Status: tt.current, Remarks: "original"}
			before := *p

			err := p.Advance(tt.requested, time.Now(), "should not be kept")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if *p != before {
				t.Fatalf("parcel mutated on rejection: got %+v, want %+v", *p, before)
			}
		})
	}
}

func TestParcelAdvanceFromNoneAllowsPickedUp(t *testing.T) {
	p := &Parcel{ParcelID: "PAR1", Status: StatusNone}
	if err := p.Advance(StatusPickedUp, time.Now(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Remarks != "" {
		t.Fatalf("blank remark should not be appended, got %q", p.Remarks)
	}
}

func TestTransitionErrorNamesRequiredState(t *testing.T) {
	p := &Parcel{ParcelID: "PAR9", Status: StatusPickedUp}
	err := p.Advance(StatusDelivered, time.Now(), "")

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	want := `parcel PAR9: cannot move from "Picked Up" to "Delivered"; status must follow Picked Up -> In Transit -> Delivered, next allowed is "In Transit"`
	if te.Error() != want {
		t.Fatalf("message = %q\nwant      %q", te.Error(), want)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"Picked Up", StatusPickedUp},
		{"PickedUp", StatusPickedUp},
		{"in_transit", StatusInTransit},
		{" In Transit ", StatusInTransit},
		{"DELIVERED", StatusDelivered},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.raw)
		if err != nil {
			t.Errorf("ParseStatus(%q) error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	for _, raw := range []string{"", "None", "Lost", "Out for delivery"} {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ParseStatus(%q) err = %v, want ErrInvalidStatus", raw, err)
		}
	}

}

func TestStatusFromStoredExactNamesOnly(t *testing.T) {
	exact := map[string]Status{
		"Picked Up":  StatusPickedUp,
		"In Transit": StatusInTransit,
		"Delivered":  StatusDelivered,
	}
	for raw, want := range exact {
		if got := StatusFromStored(raw); got != want {
			t.Errorf("StatusFromStored(%q) = %v, want %v", raw, got, want)
		}
	}

	for _, raw := range []string{"", "garbage", "picked up", "PickedUp", "in_transit", "delivered", " Delivered"} {
		if got := StatusFromStored(raw); got != StatusNone {
			t.Errorf("StatusFromStored(%q) = %v, want None", raw, got)
		}
	}
}

func TestLegacyStoredStatusAdvancesToPickedUp(t *testing.T) {
	p := &Parcel{ParcelID: "PAR1", Status: StatusFromStored("in_transit")}
	if err := p.Advance(StatusPickedUp, time.Now(), ""); err != nil {
		t.Fatalf("advance legacy row: %v", err)
	}
	if p.Status != StatusPickedUp {
		t.Fatalf("status = %v, want %v", p.Status, StatusPickedUp)
	}
}
