package domain

import (
	"strings"
	"time"
)

const remarkSeparator = " | "

// Represents a single delivery unit tracked by the system.
// Parcels are created elsewhere in status PickedUp; this package only reads them and advances
// their status. DeliveredAt is non-nil if and only if Status is terminal.
type Parcel struct {
	ParcelID        string
	AgentID         string // empty when unassigned
	Status          Status
	SenderAddress   string
	ReceiverAddress string
	FastDelivery    bool
	CreatedAt       time.Time
	DeliveredAt     *time.Time
	Remarks         string
}

// IsActive reports whether the parcel still awaits delivery.
func (p *Parcel) IsActive() bool {
	return !p.Status.IsTerminal()
}

// Advance moves the parcel exactly one step forward to requested.
//
// The transition is all-or-nothing: on error the parcel is left untouched. On success the
// delivery timestamp is set to now when requested is terminal and cleared otherwise, and the
// remark (if any) is appended.
func (p *Parcel) Advance(requested Status, now time.Time, remark string) error {
	if !requested.IsValid() {
		return ErrInvalidStatus
	}

	next, ok := p.Status.Next()
	if !ok || next != requested {
		return &TransitionError{ParcelID: p.ParcelID, Current: p.Status, Requested: requested}
	}

	p.Status = requested
	if requested.IsTerminal() {
		at := now
		p.DeliveredAt = &at
	} else {
		p.DeliveredAt = nil
	}
	p.AppendRemark(remark)

	return nil
}

// AppendRemark adds an annotation; earlier remarks are never rewritten.
func (p *Parcel) AppendRemark(remark string) {
	remark = strings.TrimSpace(remark)
	if remark == "" {
		return
	}
	if p.Remarks == "" {
		p.Remarks = remark
		return
	}
	p.Remarks += remarkSeparator + remark
}
