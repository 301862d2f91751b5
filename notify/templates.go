package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sekolahku/notification-engine/model"
)

// Payload carries the values a message template needs. Each template accepts exactly one payload type.
type Payload interface {
	Validate() error
}

func requireFields(kind string, fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return NewValidationError("%s payload is missing %s", kind, strings.Join(missing, ", "))
	}
	return nil
}

// ClassReport describes a class report waiting for a department head.
type ClassReport struct {
	Kelas   string `json:"kelas"`
	Periode string `json:"periode"`
}

// Validate returns a ValidationError if a required field is empty.
func (p ClassReport) Validate() error {
	return requireFields("class report", [2]string{"kelas", p.Kelas}, [2]string{"periode", p.Periode})
}

// StudentReport describes a report about a single student.
type StudentReport struct {
	StudentName string `json:"student_name"`
	Kelas       string `json:"kelas"`
}

// Validate returns a ValidationError if a required field is empty.
func (p StudentReport) Validate() error {
	return requireFields("student report", [2]string{"student_name", p.StudentName}, [2]string{"kelas", p.Kelas})
}

// ScheduleSummary describes the schedule of one class for one period.
type ScheduleSummary struct {
	Kelas   string `json:"kelas"`
	Periode string `json:"periode"`
}

// Validate returns a ValidationError if a required field is empty.
func (p ScheduleSummary) Validate() error {
	return requireFields("schedule", [2]string{"kelas", p.Kelas}, [2]string{"periode", p.Periode})
}

// ApprovalRequest describes something waiting for approval.
type ApprovalRequest struct {
	Subject   string `json:"subject"`
	Requester string `json:"requester"`
}

// Validate returns a ValidationError if a required field is empty.
func (p ApprovalRequest) Validate() error {
	return requireFields("approval request", [2]string{"subject", p.Subject}, [2]string{"requester", p.Requester})
}

// ScheduleDecision describes the outcome of a schedule review. A reason is required for rejections.
type ScheduleDecision struct {
	Kelas   string `json:"kelas"`
	Periode string `json:"periode"`
	Reason  string `json:"reason,omitempty"`
}

// Validate returns a ValidationError if a required field is empty.
func (p ScheduleDecision) Validate() error {
	return requireFields("schedule decision", [2]string{"kelas", p.Kelas}, [2]string{"periode", p.Periode})
}

// RecordUpdate describes a change to one of the recipient's own records.
type RecordUpdate struct {
	Record string `json:"record"`
}

// Validate returns a ValidationError if a required field is empty.
func (p RecordUpdate) Validate() error {
	return requireFields("record update", [2]string{"record", p.Record})
}

// Announcement is free text written by an administrator.
type Announcement struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Validate returns a ValidationError if a required field is empty.
func (p Announcement) Validate() error {
	return requireFields("announcement", [2]string{"title", p.Title}, [2]string{"body", p.Body})
}

// departmentTemplate renders the message of a department-scoped notification.
type departmentTemplate struct {
	decode func(raw json.RawMessage) (Payload, error)
	render func(department string, p Payload) (string, bool)
}

var departmentTemplates = map[string]departmentTemplate{
	model.ClassificationClassReport: {
		decode: decoder[ClassReport](),
		render: func(department string, p Payload) (string, bool) {
			r, ok := p.(ClassReport)
			return fmt.Sprintf("Class report for %s %s - %s awaiting approval", r.Kelas, department, r.Periode), ok
		},
	},
	model.ClassificationStudentReport: {
		decode: decoder[StudentReport](),
		render: func(department string, p Payload) (string, bool) {
			r, ok := p.(StudentReport)
			return fmt.Sprintf("Student report for %s (%s %s) awaiting review", r.StudentName, r.Kelas, department), ok
		},
	},
	model.ClassificationScheduleSummary: {
		decode: decoder[ScheduleSummary](),
		render: func(department string, p Payload) (string, bool) {
			s, ok := p.(ScheduleSummary)
			return fmt.Sprintf("Schedule summary for %s %s - %s is ready", s.Kelas, department, s.Periode), ok
		},
	},
	model.ClassificationApprovalRequest: {
		decode: decoder[ApprovalRequest](),
		render: func(department string, p Payload) (string, bool) {
			a, ok := p.(ApprovalRequest)
			return fmt.Sprintf("%s requests approval for %s (%s)", a.Requester, a.Subject, department), ok
		},
	},
}

// renderDepartmentMessage validates the payload and renders the department template for the classification.
func renderDepartmentMessage(department, classification string, payload Payload) (string, error) {
	if strings.TrimSpace(department) == "" {
		return "", NewValidationError("a department is required")
	}
	tmpl, ok := departmentTemplates[classification]
	if !ok {
		return "", NewValidationError("no department template for classification %q", classification)
	}
	if payload == nil {
		return "", NewValidationError("a %s payload is required", classification)
	}
	if err := payload.Validate(); err != nil {
		return "", err
	}
	msg, ok := tmpl.render(department, payload)
	if !ok {
		return "", NewValidationError("payload of type %T doesn't fit classification %q", payload, classification)
	}
	return msg, nil
}

// DecodeDepartmentPayload decodes the JSON payload for a department-scoped classification.
func DecodeDepartmentPayload(classification string, raw json.RawMessage) (Payload, error) {
	tmpl, ok := departmentTemplates[classification]
	if !ok {
		return nil, NewValidationError("no department template for classification %q", classification)
	}
	return tmpl.decode(raw)
}

// Broadcast actions.
const (
	ActionSchedulePublished = "schedule_published"
	ActionScheduleUpdated   = "schedule_updated"
	ActionScheduleApproved  = "schedule_approved"
	ActionScheduleRejected  = "schedule_rejected"
	ActionRecordUpdated     = "record_updated"
	ActionAnnouncement      = "announcement"
	ActionReportSubmitted   = "report_submitted"
)

type broadcastTemplate struct {
	decode func(raw json.RawMessage) (Payload, error)
	render func(audience Audience, p Payload) (string, error)
}

func scheduleNoun(userType model.UserType) string {
	switch userType {
	case model.UserTypeTeacher:
		return "Teaching schedule"
	case model.UserTypeStudent:
		return "Class schedule"
	default:
		return "Schedule"
	}
}

func mismatch(action string, p Payload) error {
	return NewValidationError("payload of type %T doesn't fit action %q", p, action)
}

var broadcastTemplates = map[string]broadcastTemplate{
	ActionSchedulePublished: {
		decode: decoder[ScheduleSummary](),
		render: func(a Audience, p Payload) (string, error) {
			s, ok := p.(ScheduleSummary)
			if !ok {
				return "", mismatch(ActionSchedulePublished, p)
			}
			return fmt.Sprintf("%s for %s (%s) has been published", scheduleNoun(a.UserType), s.Kelas, s.Periode), nil
		},
	},
	ActionScheduleUpdated: {
		decode: decoder[ScheduleSummary](),
		render: func(a Audience, p Payload) (string, error) {
			s, ok := p.(ScheduleSummary)
			if !ok {
				return "", mismatch(ActionScheduleUpdated, p)
			}
			return fmt.Sprintf("%s for %s (%s) has been updated", scheduleNoun(a.UserType), s.Kelas, s.Periode), nil
		},
	},
	ActionScheduleApproved: {
		decode: decoder[ScheduleDecision](),
		render: func(a Audience, p Payload) (string, error) {
			d, ok := p.(ScheduleDecision)
			if !ok {
				return "", mismatch(ActionScheduleApproved, p)
			}
			return fmt.Sprintf("Schedule for %s (%s) has been approved", d.Kelas, d.Periode), nil
		},
	},
	ActionScheduleRejected: {
		decode: decoder[ScheduleDecision](),
		render: func(a Audience, p Payload) (string, error) {
			d, ok := p.(ScheduleDecision)
			if !ok {
				return "", mismatch(ActionScheduleRejected, p)
			}
			if strings.TrimSpace(d.Reason) == "" {
				return "", NewValidationError("schedule decision payload is missing reason")
			}
			return fmt.Sprintf("Schedule for %s (%s) has been rejected: %s", d.Kelas, d.Periode, d.Reason), nil
		},
	},
	ActionRecordUpdated: {
		decode: decoder[RecordUpdate](),
		render: func(a Audience, p Payload) (string, error) {
			r, ok := p.(RecordUpdate)
			if !ok {
				return "", mismatch(ActionRecordUpdated, p)
			}
			return fmt.Sprintf("Your %s record has been updated", r.Record), nil
		},
	},
	ActionAnnouncement: {
		decode: decoder[Announcement](),
		render: func(a Audience, p Payload) (string, error) {
			n, ok := p.(Announcement)
			if !ok {
				return "", mismatch(ActionAnnouncement, p)
			}
			return fmt.Sprintf("%s: %s", n.Title, n.Body), nil
		},
	},
	ActionReportSubmitted: {
		decode: decoder[ClassReport](),
		render: func(a Audience, p Payload) (string, error) {
			r, ok := p.(ClassReport)
			if !ok {
				return "", mismatch(ActionReportSubmitted, p)
			}
			if a.Department != "" {
				return fmt.Sprintf("Class report for %s %s - %s has been submitted", r.Kelas, a.Department, r.Periode), nil
			}
			return fmt.Sprintf("Class report for %s - %s has been submitted", r.Kelas, r.Periode), nil
		},
	},
}

// renderBroadcastMessage validates the payload and renders the shared message for a broadcast.
func renderBroadcastMessage(audience Audience, action string, payload Payload) (string, error) {
	tmpl, ok := broadcastTemplates[action]
	if !ok {
		return "", NewValidationError("unknown broadcast action %q", action)
	}
	if payload == nil {
		return "", NewValidationError("a payload is required for action %q", action)
	}
	if err := payload.Validate(); err != nil {
		return "", err
	}
	return tmpl.render(audience, payload)
}

// DecodeBroadcastPayload decodes the JSON payload for a broadcast action.
func DecodeBroadcastPayload(action string, raw json.RawMessage) (Payload, error) {
	tmpl, ok := broadcastTemplates[action]
	if !ok {
		return nil, NewValidationError("unknown broadcast action %q", action)
	}
	return tmpl.decode(raw)
}

func decoder[T Payload]() func(raw json.RawMessage) (Payload, error) {
	return func(raw json.RawMessage) (Payload, error) {
		var p T
		if len(raw) == 0 {
			return nil, NewValidationError("a %T payload is required", p)
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, NewValidationError("unable to parse %T payload: %s", p, err.Error())
		}
		return p, nil
	}
}
