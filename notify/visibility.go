package notify

import (
	"sort"
	"strings"

	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

// departmentHeadClassifications lists the classifications department heads are shown. Notifications without a
// classification are included.
var departmentHeadClassifications = map[string]bool{
	model.ClassificationClassReport:     true,
	model.ClassificationApprovalRequest: true,
	model.ClassificationScheduleSummary: true,
	model.ClassificationStudentReport:   true,
	model.ClassificationSchedule:        true,
	model.ClassificationGeneral:         true,
	"":                                  true,
}

// adminClassifications are always shown to administrators unless excluded as a publication notice.
var adminClassifications = map[string]bool{
	model.ClassificationSystem:          true,
	model.ClassificationApprovalRequest: true,
}

var (
	decisionWords    = []string{"approved", "rejected", "disetujui", "ditolak"}
	publicationWords = []string{"published", "dipublikasikan", "diterbitkan"}
)

func mentionsAny(message string, words []string) bool {
	lower := strings.ToLower(message)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsVisible reports whether the viewer may see the notification. It is the only place visibility is decided; the
// read stream and MarkAllRead both go through it.
func IsVisible(n *model.Notification, viewer model.Viewer) bool {
	switch viewer.Role {
	case model.UserTypeDepartmentHead:
		return visibleToDepartmentHead(n, viewer.Department)
	case model.UserTypeAdmin:
		return visibleToAdmin(n, viewer.ID)
	default:
		return viewer.ID != "" && n.RecipientID == viewer.ID
	}
}

func visibleToDepartmentHead(n *model.Notification, department string) bool {
	if n.TargetUserType != model.UserTypeDepartmentHead || department == "" {
		return false
	}
	if !departmentHeadClassifications[n.Classification] {
		return false
	}
	if n.TargetDepartment != "" {
		return n.TargetDepartment == department
	}

	// Older notifications predate TargetDepartment and only name the department in the message text. Substring
	// matching can misfire when one department code appears inside unrelated text.
	return strings.Contains(n.Message, department)
}

func visibleToAdmin(n *model.Notification, viewerID string) bool {
	if n.TargetUserType == model.UserTypeTeacher || n.TargetUserType == model.UserTypeStudent {
		return false
	}
	if n.Classification == model.ClassificationSchedule &&
		n.SenderKindIs(model.SenderAdmin) &&
		mentionsAny(n.Message, publicationWords) {
		return false
	}

	switch {
	case n.RecipientID == model.AdminRecipient:
		return true
	case viewerID != "" && n.RecipientID == viewerID:
		return true
	case adminClassifications[n.Classification]:
		return true
	case n.Classification == model.ClassificationSchedule &&
		n.SenderKindIs(model.SenderDepartmentHead) &&
		mentionsAny(n.Message, decisionWords):
		return true
	default:
		return false
	}
}

// scopeFor returns the narrowest store selection that contains everything the viewer may see.
func scopeFor(viewer model.Viewer) (store.Index, string) {
	switch viewer.Role {
	case model.UserTypeDepartmentHead:
		return store.IndexTargetUserType, string(model.UserTypeDepartmentHead)
	case model.UserTypeAdmin:
		// Administrator visibility spans recipients and classifications, so no single index covers it.
		return store.IndexAll, ""
	default:
		return store.IndexRecipient, viewer.ID
	}
}

// Visible filters notifications down to the ones the viewer may see, newest first.
func Visible(notifications []model.Notification, viewer model.Viewer) []model.Notification {
	result := make([]model.Notification, 0, len(notifications))
	for i := range notifications {
		if IsVisible(&notifications[i], viewer) {
			result = append(result, notifications[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Unread returns the notifications that haven't been read, preserving their order.
func Unread(notifications []model.Notification) []model.Notification {
	result := make([]model.Notification, 0)
	for _, n := range notifications {
		if !n.Read {
			result = append(result, n)
		}
	}
	return result
}

// CountUnread counts the notifications that haven't been read.
func CountUnread(notifications []model.Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count
}
