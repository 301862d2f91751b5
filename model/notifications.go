package model

import "time"

// UserType identifies a class of users that can be addressed or that can view notifications.
type UserType string

// The user types known to the notification engine.
const (
	UserTypeTeacher        UserType = "teacher"
	UserTypeStudent        UserType = "student"
	UserTypeAdmin          UserType = "admin"
	UserTypeDepartmentHead UserType = "department-head"
)

// SenderKind identifies who produced a notification.
type SenderKind string

// The kinds of senders that may be attached to a notification.
const (
	SenderAdmin          SenderKind = "admin"
	SenderSystem         SenderKind = "system"
	SenderDepartmentHead SenderKind = "department-head"
)

// Notification classifications. Classifications only drive visibility rules and iconography.
const (
	ClassificationGeneral         = "general"
	ClassificationSchedule        = "schedule"
	ClassificationRecordUpdate    = "record-update"
	ClassificationAnnouncement    = "announcement"
	ClassificationSystem          = "system"
	ClassificationClassReport     = "class_report"
	ClassificationApprovalRequest = "approval_request"
	ClassificationScheduleSummary = "schedule_summary"
	ClassificationStudentReport   = "student_report"
)

// AdminRecipient is the shared recipient ID used for notifications addressed to every administrator.
const AdminRecipient = "admin"

// Sender describes the originator of a notification.
type Sender struct {
	Name string     `json:"name"`
	Kind SenderKind `json:"kind"`
	ID   string     `json:"id"`
}

// Notification represents a single stored notification. Only Read and ReadAt ever change after creation.
//
// RecipientID is empty for shared records that are scoped by TargetUserType and TargetDepartment instead.
type Notification struct {
	ID               string     `json:"id"`
	RecipientID      string     `json:"recipient_id,omitempty"`
	Message          string     `json:"message"`
	Classification   string     `json:"classification,omitempty"`
	TargetUserType   UserType   `json:"target_user_type,omitempty"`
	TargetDepartment string     `json:"target_department,omitempty"`
	Sender           *Sender    `json:"sender,omitempty"`
	Read             bool       `json:"read"`
	CreatedAt        time.Time  `json:"created_at"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
}

// SenderKindIs returns true if the notification has a sender of the given kind.
func (n *Notification) SenderKindIs(kind SenderKind) bool {
	return n.Sender != nil && n.Sender.Kind == kind
}

// Viewer identifies the user looking at notifications. Department is only meaningful for department heads.
type Viewer struct {
	ID         string   `json:"viewer_id"`
	Role       UserType `json:"viewer_role"`
	Department string   `json:"viewer_department,omitempty"`
}
