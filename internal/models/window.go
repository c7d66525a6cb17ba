// internal/models/window.go
package models

import "time"

// SystemPrincipal attributes automated mutations, such as deadline-driven
// window closes, in audit fields.
const SystemPrincipal = "system"

// ApplicationWindow controls whether new submissions are accepted.
// AutoClosed records whether the last close came from the deadline
// scheduler rather than an admin; opening clears it.
type ApplicationWindow struct {
	ID         string     `json:"id"`
	IsOpen     bool       `json:"isOpen"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	AutoClosed bool       `json:"autoClosed"`
	UpdatedBy  string     `json:"updatedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// DeadlinePassed reports whether the window has a deadline at or before now.
func (w *ApplicationWindow) DeadlinePassed(now time.Time) bool {
	return w.Deadline != nil && !w.Deadline.After(now)
}
