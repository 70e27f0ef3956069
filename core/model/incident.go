package model

import "time"

// MaintenanceWindow is a scheduled service interruption on part of the network.
type MaintenanceWindow struct {
	ID     string
	Type   string // e.g. "track", "signalling", "depot"
	Start  time.Time
	End    time.Time
	Impact string
}

// Contains reports whether t falls inside the window.
func (w MaintenanceWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// EmergencySeverity grades an emergency alert.
type EmergencySeverity int

const (
	SeverityMinor EmergencySeverity = iota
	SeverityMajor
	SeverityCritical
)

// String returns a human-readable representation of the severity.
func (s EmergencySeverity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityMajor:
		return "major"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Emergency is an active alert affecting operations. An emergency only
// changes through the explicit Resolve and Escalate transitions; every
// other field is fixed at creation.
type Emergency struct {
	ID          string
	Type        string
	Severity    EmergencySeverity
	Description string
	RaisedAt    time.Time
	Resolved    bool
	ResolvedAt  time.Time
}

// Resolve returns a copy of the emergency marked resolved at t.
// Resolving an already resolved emergency is a no-op.
func (e Emergency) Resolve(t time.Time) Emergency {
	if e.Resolved {
		return e
	}
	e.Resolved = true
	e.ResolvedAt = t
	return e
}

// Escalate returns a copy with the severity raised one level, capped at
// critical. A resolved emergency cannot be escalated.
func (e Emergency) Escalate() Emergency {
	if e.Resolved || e.Severity >= SeverityCritical {
		return e
	}
	e.Severity++
	return e
}
