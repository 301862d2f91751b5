package directory

import (
	"context"
	"strings"
)

// Filter narrows a directory listing. Empty fields don't filter anything.
type Filter struct {
	Department string
}

// Entry is a single member of a directory. Each directory keys its members under its own identifier field: students
// by NIS, teachers and department heads by NIP, and administrators by e-mail address. UserID is set when the member
// has a linked login account.
type Entry struct {
	UserID     string
	NIS        string
	NIP        string
	Email      string
	Name       string
	Department string
	Status     string
}

// Active returns true if the entry's status marks it as active.
func (e *Entry) Active() bool {
	switch strings.ToLower(strings.TrimSpace(e.Status)) {
	case "active", "aktif":
		return true
	default:
		return false
	}
}

// Directory lists the members of one audience type.
type Directory interface {
	ListActive(ctx context.Context, filter Filter) ([]Entry, error)
}
