package notify

import (
	"context"
	"strings"

	"github.com/sekolahku/notification-engine/common"
	"github.com/sekolahku/notification-engine/directory"
	"github.com/sekolahku/notification-engine/model"
)

// Audience names a group of recipients: every active member of a user type, narrowed to one department for
// department heads.
type Audience struct {
	UserType   model.UserType `json:"target_user_type"`
	Department string         `json:"department,omitempty"`
}

// Resolver turns audiences into recipient IDs using one directory per user type.
type Resolver struct {
	directories map[model.UserType]directory.Directory
}

// NewResolver returns a resolver with no directories registered.
func NewResolver() *Resolver {
	return &Resolver{directories: make(map[model.UserType]directory.Directory)}
}

// Register sets the directory used to resolve audiences of the given user type.
func (r *Resolver) Register(userType model.UserType, d directory.Directory) *Resolver {
	r.directories[userType] = d
	return r
}

// Resolve returns the recipient IDs of every active member of the audience. An audience without a registered
// directory or without active members resolves to an empty list. A ResolutionError is returned only if the
// directory itself fails.
func (r *Resolver) Resolve(ctx context.Context, audience Audience) ([]string, error) {
	d, ok := r.directories[audience.UserType]
	if !ok {
		log.Debugf("no directory registered for %s", audience.UserType)
		return []string{}, nil
	}

	var filter directory.Filter
	if audience.UserType == model.UserTypeDepartmentHead {
		filter.Department = audience.Department
	}

	entries, err := d.ListActive(ctx, filter)
	if err != nil {
		return nil, ResolutionError{UserType: audience.UserType, Err: err}
	}

	seen := make(map[string]bool)
	recipients := make([]string, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		if !entry.Active() {
			continue
		}
		if audience.UserType == model.UserTypeDepartmentHead && entry.Department != audience.Department {
			continue
		}
		id, ok := RecipientID(audience.UserType, entry)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}

	return recipients, nil
}

// RecipientID normalizes a directory entry to the identifier notifications are addressed to. The linked account
// ID wins when present; otherwise the directory's own key for the user type is used. Administrators keyed by an
// invalid e-mail address have no usable identifier.
func RecipientID(userType model.UserType, entry *directory.Entry) (string, bool) {
	if id := strings.TrimSpace(entry.UserID); id != "" {
		return id, true
	}

	var id string
	switch userType {
	case model.UserTypeStudent:
		id = entry.NIS
	case model.UserTypeTeacher, model.UserTypeDepartmentHead:
		id = entry.NIP
	case model.UserTypeAdmin:
		id = strings.ToLower(strings.TrimSpace(entry.Email))
		if id != "" && common.ValidateEmailAddress(id) != nil {
			log.Warnf("skipping administrator with an invalid e-mail address: %q", entry.Email)
			return "", false
		}
	}

	id = strings.TrimSpace(id)
	return id, id != ""
}
