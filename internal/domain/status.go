package domain

import (
	"fmt"
	"strings"
)

// Status is the delivery lifecycle state of a parcel.
//
// States progress strictly forward, one step at a time:
//
//	None -> PickedUp -> InTransit -> Delivered
//
// StatusNone stands for a parcel that never had a recognised status; it is never a valid target.
type Status int

const (
	StatusNone Status = iota
	StatusPickedUp
	StatusInTransit
	StatusDelivered
)

var statusNames = map[Status]string{
	StatusPickedUp:  "Picked Up",
	StatusInTransit: "In Transit",
	StatusDelivered: "Delivered",
}

// Ordered transition table: each state maps to the only state it may advance to.
var nextStatus = map[Status]Status{
	StatusNone:      StatusPickedUp,
	StatusPickedUp:  StatusInTransit,
	StatusInTransit: StatusDelivered,
}

// String returns the wire name of the status ("None" for StatusNone).
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "None"
}

// IsValid reports whether s is one of the lifecycle states a parcel can be moved into.
func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether s has no successor.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered
}

// Next returns the single state s may advance to.
func (s Status) Next() (Status, bool) {
	n, ok := nextStatus[s]
	return n, ok
}

// ParseStatus maps a requested status string onto the enumeration.
// The wire name ("In Transit") and compact spellings ("InTransit", "in_transit") are accepted.
func ParseStatus(raw string) (Status, error) {
	key := compactStatus(raw)
	for s, name := range statusNames {
		if compactStatus(name) == key {
			return s, nil
		}
	}
	return StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// StatusFromStored maps a persisted status value onto the enumeration.
// Only exact wire names are recognised. Anything else, including differently spelled names,
// becomes StatusNone.
func StatusFromStored(raw string) Status {
	for s, name := range statusNames {
		if name == raw {
			return s
		}
	}
	return StatusNone
}

func compactStatus(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}
