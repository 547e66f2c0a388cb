package model

import "strconv"

// SourceID identifies a registered source. IDs come from a monotonic
// generator and are never reused while the owning source is live.
type SourceID uint64

// String returns the decimal form of the id.
func (id SourceID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseSourceID parses the decimal form produced by String.
func ParseSourceID(s string) (SourceID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return SourceID(v), err
}

// SourceStatus is a point-in-time snapshot of one source's scheduling
// state, as reported by the Manager.
type SourceStatus struct {
	ID       SourceID    `json:"id"`
	Name     string      `json:"name,omitempty"`
	State    SourceState `json:"state"`
	Pending  int         `json:"pending"`
	InFlight int         `json:"in_flight"`
}
