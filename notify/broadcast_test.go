package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/notification-engine/directory"
	"github.com/sekolahku/notification-engine/model"
	"github.com/sekolahku/notification-engine/store"
)

func studentDirectory() *directory.Static {
	return directory.NewStatic(
		directory.Entry{NIS: "S1", Status: "aktif"},
		directory.Entry{NIS: "S2", Status: "aktif"},
		directory.Entry{NIS: "S3", Status: "aktif"},
		directory.Entry{NIS: "S4", Status: "aktif"},
		directory.Entry{NIS: "S5", Status: "aktif"},
		directory.Entry{NIS: "S6", Status: "lulus"},
	)
}

func TestBroadcastToleratesPartialFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := newFlakyStore()
	s.failInsert = func(n *model.Notification, _ int) error {
		if n.RecipientID == "S3" {
			return errStoreUnavailable
		}
		return nil
	}
	sleeper := &recordingSleeper{}
	producer := NewProducer(s, WithSleeper(sleeper.sleep))
	resolver := NewResolver().Register(model.UserTypeStudent, studentDirectory())
	o := NewOrchestrator(producer, resolver, 2)

	result, err := o.Broadcast(ctx, Audience{UserType: model.UserTypeStudent}, model.ClassificationSchedule,
		ActionSchedulePublished, ScheduleSummary{Kelas: "X TKJ 1", Periode: "Semester Genap"},
		&model.Sender{Name: "Kurikulum", Kind: model.SenderAdmin, ID: "A1"})
	require.NoError(t, err)

	assert.Equal(5, result.Total)
	assert.Equal(4, result.Successful)
	assert.Equal(1, result.Failed)
	assert.Contains(result.Failures, "S3")
	assert.Equal(DefaultMaxRetries, s.attemptsFor("S3"))

	stored, _ := s.Memory.Query(ctx, store.IndexAll, "")
	assert.Len(stored, 4)
	for _, n := range stored {
		assert.Equal("Class schedule for X TKJ 1 (Semester Genap) has been published", n.Message)
		assert.Equal(model.UserTypeStudent, n.TargetUserType)
		assert.Equal(model.ClassificationSchedule, n.Classification)
		assert.NotEqual("S6", n.RecipientID, "an inactive student was notified")
	}
}

func TestBroadcastResolutionFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := newFlakyStore()
	failing := directory.NewStatic()
	failing.Err = errors.New("directory unavailable")
	o := NewOrchestrator(NewProducer(s), NewResolver().Register(model.UserTypeTeacher, failing), 0)

	_, err := o.Broadcast(ctx, Audience{UserType: model.UserTypeTeacher}, model.ClassificationAnnouncement,
		ActionAnnouncement, Announcement{Title: "Rapat", Body: "Rapat guru hari Senin"}, nil)
	assert.True(IsResolution(err))

	all, _ := s.Memory.Query(ctx, store.IndexAll, "")
	assert.Empty(all)
}

func TestBroadcastEmptyAudience(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	o := NewOrchestrator(NewProducer(store.NewMemory()), NewResolver(), 0)
	result, err := o.Broadcast(ctx, Audience{UserType: model.UserTypeAdmin}, model.ClassificationSystem,
		ActionAnnouncement, Announcement{Title: "Backup", Body: "Backup selesai"}, nil)
	assert.NoError(err)
	assert.Equal(0, result.Total)
	assert.Equal(0, result.Successful)
	assert.Equal(0, result.Failed)
}

func TestBroadcastInvalidPayload(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := newFlakyStore()
	o := NewOrchestrator(NewProducer(s), NewResolver().Register(model.UserTypeStudent, studentDirectory()), 0)

	_, err := o.Broadcast(ctx, Audience{UserType: model.UserTypeStudent}, model.ClassificationSchedule,
		ActionSchedulePublished, ScheduleSummary{Periode: "Semester Genap"}, nil)
	assert.True(IsValidation(err))

	_, err = o.Broadcast(ctx, Audience{UserType: model.UserTypeStudent}, model.ClassificationSchedule,
		"schedule_burned", ScheduleSummary{Kelas: "X", Periode: "Y"}, nil)
	assert.True(IsValidation(err))

	all, _ := s.Memory.Query(ctx, store.IndexAll, "")
	assert.Empty(all)
}

func TestBroadcastToDepartmentHeads(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := store.NewMemory()
	heads := directory.NewStatic(
		directory.Entry{NIP: "198001", Department: "TKJ", Status: "aktif"},
		directory.Entry{NIP: "198002", Department: "TKR", Status: "aktif"},
	)
	o := NewOrchestrator(NewProducer(s), NewResolver().Register(model.UserTypeDepartmentHead, heads), 0)

	result, err := o.Broadcast(ctx, Audience{UserType: model.UserTypeDepartmentHead, Department: "TKJ"},
		model.ClassificationClassReport, ActionReportSubmitted, ClassReport{Kelas: "XII TKJ 1", Periode: "2024/2025"}, nil)
	require.NoError(t, err)
	assert.Equal(1, result.Total)
	assert.Equal(1, result.Successful)

	stored, _ := s.Query(ctx, store.IndexAll, "")
	require.Len(t, stored, 1)
	assert.Equal("198001", stored[0].RecipientID)
	assert.Equal("TKJ", stored[0].TargetDepartment)
	assert.Equal(model.UserTypeDepartmentHead, stored[0].TargetUserType)

	assert.True(IsVisible(&stored[0], model.Viewer{ID: "198001", Role: model.UserTypeDepartmentHead, Department: "TKJ"}))
	assert.False(IsVisible(&stored[0], model.Viewer{ID: "198002", Role: model.UserTypeDepartmentHead, Department: "TKR"}))
}
