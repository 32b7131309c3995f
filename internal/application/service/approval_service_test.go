package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/decision"
	"github.com/campusworks/timesheet-approval/internal/application/dispatcher"
	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/event"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/policy"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

var testMonday = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

// fakeStore is shared in-memory state with snapshot/restore transaction
// semantics, so rollback behaviour can be asserted.
type fakeStore struct {
	users      map[int64]*entity.User
	courses    map[int64]*entity.Course
	timesheets map[int64]*entity.Timesheet
	records    []*entity.ApprovalRecord

	failRecordCreate bool
	failTransition   error
}

func newFakeStore() *fakeStore {
	tutor := &entity.User{ID: 10, Role: workflow.RoleTutor, IsActive: true}
	lecturer := &entity.User{ID: 20, Role: workflow.RoleLecturer, IsActive: true}
	hr := &entity.User{ID: 30, Role: workflow.RoleHR, IsActive: true}
	course := &entity.Course{
		ID:              100,
		LecturerID:      20,
		BudgetAllocated: decimal.RequireFromString("5000.00"),
		BudgetUsed:      decimal.RequireFromString("1000.00"),
		MaxTutors:       5,
		IsActive:        true,
	}
	ts := &entity.Timesheet{
		ID:         1,
		TutorID:    10,
		CourseID:   100,
		WeekStart:  testMonday,
		Hours:      decimal.RequireFromString("6"),
		HourlyRate: decimal.RequireFromString("45.00"),
		Status:     workflow.StatusDraft,
	}
	return &fakeStore{
		users:      map[int64]*entity.User{10: tutor, 20: lecturer, 30: hr},
		courses:    map[int64]*entity.Course{100: course},
		timesheets: map[int64]*entity.Timesheet{1: ts},
	}
}

type snapshot struct {
	status      workflow.Status
	recordCount int
	budgetUsed  decimal.Decimal
}

func (f *fakeStore) snapshot() snapshot {
	return snapshot{
		status:      f.timesheets[1].Status,
		recordCount: len(f.records),
		budgetUsed:  f.courses[100].BudgetUsed,
	}
}

func (f *fakeStore) restore(s snapshot) {
	f.timesheets[1].Status = s.status
	f.records = f.records[:s.recordCount]
	f.courses[100].BudgetUsed = s.budgetUsed
}

type fakeTxManager struct{ store *fakeStore }

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, u *entity.User) error { return nil }
func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if u, ok := r.store.users[id]; ok {
		return u, nil
	}
	return nil, port.ErrNotFound
}
func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, port.ErrNotFound
}

type fakeCourseRepo struct{ store *fakeStore }

func (r *fakeCourseRepo) Create(ctx context.Context, c *entity.Course) error { return nil }
func (r *fakeCourseRepo) GetByID(ctx context.Context, id int64) (*entity.Course, error) {
	if c, ok := r.store.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, port.ErrNotFound
}
func (r *fakeCourseRepo) AddBudgetUsed(ctx context.Context, id int64, amount decimal.Decimal) error {
	c, ok := r.store.courses[id]
	if !ok {
		return port.ErrNotFound
	}
	c.BudgetUsed = c.BudgetUsed.Add(amount)
	return nil
}
func (r *fakeCourseRepo) CountActiveTutors(ctx context.Context, courseID int64) (int, error) {
	return 2, nil
}

type fakeTimesheetRepo struct{ store *fakeStore }

func (r *fakeTimesheetRepo) Create(ctx context.Context, ts *entity.Timesheet) error {
	ts.ID = int64(len(r.store.timesheets) + 1)
	r.store.timesheets[ts.ID] = ts
	return nil
}
func (r *fakeTimesheetRepo) GetByID(ctx context.Context, id int64) (*entity.Timesheet, error) {
	if ts, ok := r.store.timesheets[id]; ok {
		copied := *ts
		return &copied, nil
	}
	return nil, port.ErrNotFound
}
func (r *fakeTimesheetRepo) GetByTutorCourseWeek(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (*entity.Timesheet, error) {
	for _, ts := range r.store.timesheets {
		if ts.TutorID == tutorID && ts.CourseID == courseID && ts.WeekStart.Equal(weekStart) {
			return ts, nil
		}
	}
	return nil, port.ErrNotFound
}
func (r *fakeTimesheetRepo) Update(ctx context.Context, ts *entity.Timesheet) error {
	r.store.timesheets[ts.ID] = ts
	return nil
}
func (r *fakeTimesheetRepo) TransitionStatus(ctx context.Context, id int64, fromStatus, newStatus workflow.Status, at time.Time) error {
	if r.store.failTransition != nil {
		return r.store.failTransition
	}
	ts, ok := r.store.timesheets[id]
	if !ok {
		return port.ErrNotFound
	}
	if ts.Status != fromStatus {
		return port.ErrStatusConflict
	}
	ts.Status = newStatus
	ts.UpdatedAt = at
	return nil
}
func (r *fakeTimesheetRepo) Delete(ctx context.Context, id int64) error {
	delete(r.store.timesheets, id)
	return nil
}
func (r *fakeTimesheetRepo) ListByTutor(ctx context.Context, tutorID int64) ([]*entity.Timesheet, error) {
	return nil, nil
}
func (r *fakeTimesheetRepo) ListByCourse(ctx context.Context, courseID int64) ([]*entity.Timesheet, error) {
	return nil, nil
}
func (r *fakeTimesheetRepo) ListByStatusAndWeek(ctx context.Context, status workflow.Status, weekStart time.Time) ([]*entity.Timesheet, error) {
	var out []*entity.Timesheet
	for _, ts := range r.store.timesheets {
		if ts.Status == status && ts.WeekStart.Equal(weekStart) {
			out = append(out, ts)
		}
	}
	return out, nil
}
func (r *fakeTimesheetRepo) SummaryByTutor(ctx context.Context, tutorID int64) (*port.DashboardSummary, error) {
	return &port.DashboardSummary{}, nil
}
func (r *fakeTimesheetRepo) SummaryByLecturer(ctx context.Context, lecturerID int64) (*port.DashboardSummary, error) {
	return &port.DashboardSummary{}, nil
}

type fakeApprovalRepo struct{ store *fakeStore }

func (r *fakeApprovalRepo) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	if r.store.failRecordCreate {
		return errors.New("disk full")
	}
	record.ID = int64(len(r.store.records) + 1)
	r.store.records = append(r.store.records, record)
	return nil
}
func (r *fakeApprovalRepo) ListByTimesheet(ctx context.Context, timesheetID int64) ([]*entity.ApprovalRecord, error) {
	var out []*entity.ApprovalRecord
	for _, rec := range r.store.records {
		if rec.TimesheetID == timesheetID {
			out = append(out, rec)
		}
	}
	return out, nil
}
func (r *fakeApprovalRepo) CountByTimesheet(ctx context.Context, timesheetID int64) (int, error) {
	n := 0
	for _, rec := range r.store.records {
		if rec.TimesheetID == timesheetID {
			n++
		}
	}
	return n, nil
}

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestApprovalService(store *fakeStore) ApprovalService {
	return newTestApprovalServiceWithEvents(store, nil)
}

func newTestApprovalServiceWithEvents(store *fakeStore, events dispatcher.Dispatcher) ApprovalService {
	registry := workflow.NewRegistry()
	pol := policy.New()
	decisions := decision.NewService(registry, pol, validation.NewEngine(validation.DefaultBounds()), zap.NewNop())
	return NewApprovalService(
		&fakeTimesheetRepo{store},
		&fakeCourseRepo{store},
		&fakeUserRepo{store},
		&fakeApprovalRepo{store},
		&fakeTxManager{store},
		decisions,
		registry,
		pol,
		events,
		noopLogger{},
	)
}

func TestPerformAction_LecturerSubmitCommitsTransition(t *testing.T) {
	store := newFakeStore()
	svc := newTestApprovalService(store)

	result, err := svc.PerformAction(context.Background(), 1, 20, workflow.ActionSubmitForApproval, "please confirm")
	require.NoError(t, err)

	assert.Equal(t, decision.OutcomeApproved, result.Decision.Outcome)
	assert.Equal(t, workflow.StatusPendingTutorConfirmation, store.timesheets[1].Status)

	require.Len(t, store.records, 1, "exactly one approval record per transition")
	record := store.records[0]
	assert.Equal(t, int64(1), record.TimesheetID)
	assert.Equal(t, int64(20), record.ActorID)
	assert.Equal(t, workflow.ActionSubmitForApproval, record.Action)
	assert.Equal(t, workflow.StatusDraft, record.PreviousStatus)
	assert.Equal(t, workflow.StatusPendingTutorConfirmation, record.NewStatus)
	assert.Equal(t, "please confirm", record.Comment)
}

func TestPerformAction_RejectedDecisionLeavesStateUntouched(t *testing.T) {
	store := newFakeStore()
	svc := newTestApprovalService(store)

	// HR has no rule from DRAFT
	result, err := svc.PerformAction(context.Background(), 1, 30, workflow.ActionHRConfirm, "")
	require.NoError(t, err)

	assert.Equal(t, decision.OutcomeRejected, result.Decision.Outcome)
	assert.Nil(t, result.Timesheet)
	assert.Equal(t, workflow.StatusDraft, store.timesheets[1].Status)
	assert.Empty(t, store.records)
}

func TestPerformAction_CommitFailureRollsBack(t *testing.T) {
	store := newFakeStore()
	store.failRecordCreate = true
	svc := newTestApprovalService(store)

	_, err := svc.PerformAction(context.Background(), 1, 20, workflow.ActionSubmitForApproval, "")
	require.Error(t, err)

	assert.Equal(t, workflow.StatusDraft, store.timesheets[1].Status, "status must be unchanged after rollback")
	assert.Empty(t, store.records, "no approval record may survive a failed commit")
}

func TestPerformAction_ConcurrentTransitionConflict(t *testing.T) {
	store := newFakeStore()
	store.failTransition = port.ErrStatusConflict
	svc := newTestApprovalService(store)

	_, err := svc.PerformAction(context.Background(), 1, 20, workflow.ActionSubmitForApproval, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrStatusConflict)
	assert.Empty(t, store.records)
}

func TestPerformAction_HRConfirmChargesCourseBudget(t *testing.T) {
	store := newFakeStore()
	store.timesheets[1].Status = workflow.StatusLecturerConfirmed
	svc := newTestApprovalService(store)

	result, err := svc.PerformAction(context.Background(), 1, 30, workflow.ActionHRConfirm, "payroll approved")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusFinalConfirmed, store.timesheets[1].Status)
	assert.Equal(t, decision.OutcomeApproved, result.Decision.Outcome)
	// 6h * 45.00 charged on top of the initial 1000.00
	assert.True(t, store.courses[100].BudgetUsed.Equal(decimal.RequireFromString("1270.00")),
		"budget used = %s, want 1270.00", store.courses[100].BudgetUsed)
}

type recordingLogger struct {
	noopLogger
	errorMsgs []string
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
}

func TestPerformAction_OverdrawnBudgetIsLogged(t *testing.T) {
	store := newFakeStore()
	store.timesheets[1].Status = workflow.StatusLecturerConfirmed
	// Another course's claims consumed the allocation since this one was
	// validated: 1000 used against 1100 allocated leaves only 100
	// headroom for a 270.00 charge.
	store.courses[100].BudgetAllocated = decimal.RequireFromString("1100.00")

	logger := &recordingLogger{}
	registry := workflow.NewRegistry()
	pol := policy.New()
	decisions := decision.NewService(registry, pol, validation.NewEngine(validation.DefaultBounds()), zap.NewNop())
	svc := NewApprovalService(
		&fakeTimesheetRepo{store},
		&fakeCourseRepo{store},
		&fakeUserRepo{store},
		&fakeApprovalRepo{store},
		&fakeTxManager{store},
		decisions,
		registry,
		pol,
		nil,
		logger,
	)

	result, err := svc.PerformAction(context.Background(), 1, 30, workflow.ActionHRConfirm, "")
	require.NoError(t, err)

	// The charge still commits; overdraw is reported, not blocked.
	assert.Equal(t, decision.OutcomeApproved, result.Decision.Outcome)
	assert.True(t, store.courses[100].BudgetUsed.Equal(decimal.RequireFromString("1270.00")),
		"budget used = %s, want 1270.00", store.courses[100].BudgetUsed)
	require.NotEmpty(t, logger.errorMsgs)
	assert.Contains(t, logger.errorMsgs, "Course over budget after final confirmation")
}

func TestPerformAction_UnknownActorIsSystemError(t *testing.T) {
	store := newFakeStore()
	svc := newTestApprovalService(store)

	_, err := svc.PerformAction(context.Background(), 1, 999, workflow.ActionSubmitForApproval, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestValidActions_FilteredByPolicy(t *testing.T) {
	store := newFakeStore()
	store.timesheets[1].Status = workflow.StatusPendingTutorConfirmation
	svc := newTestApprovalService(store)

	// The owning tutor may act
	actions, err := svc.ValidActions(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []workflow.Action{
		workflow.ActionTutorConfirm,
		workflow.ActionReject,
		workflow.ActionRequestModification,
	}, actions)

	// HR has no registry rules at this stage
	actions, err = svc.ValidActions(context.Background(), 1, 30)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestHistory_RequiresViewPermission(t *testing.T) {
	store := newFakeStore()
	store.users[11] = &entity.User{ID: 11, Role: workflow.RoleTutor, IsActive: true}
	svc := newTestApprovalService(store)

	_, err := svc.PerformAction(context.Background(), 1, 20, workflow.ActionSubmitForApproval, "")
	require.NoError(t, err)

	records, err := svc.History(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = svc.History(context.Background(), 1, 11)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPerformAction_PublishesEventAfterCommit(t *testing.T) {
	store := newFakeStore()
	events := dispatcher.NewDispatcher()
	defer events.Close()

	received := make(chan *event.Event, 1)
	events.Subscribe(event.TypeTimesheetSubmitted, func(ctx context.Context, evt *event.Event) error {
		received <- evt
		return nil
	})

	svc := newTestApprovalServiceWithEvents(store, events)
	_, err := svc.PerformAction(context.Background(), 1, 20, workflow.ActionSubmitForApproval, "")
	require.NoError(t, err)

	select {
	case evt := <-received:
		assert.Equal(t, int64(1), evt.TimesheetID)
		assert.Equal(t, int64(20), evt.ActorID)
		assert.Equal(t, string(workflow.StatusPendingTutorConfirmation), evt.GetPayloadString("new_status"))
	case <-time.After(time.Second):
		t.Fatal("no event published for committed transition")
	}
}

func TestPerformAction_RejectedDecisionPublishesNothing(t *testing.T) {
	store := newFakeStore()
	events := dispatcher.NewDispatcher()

	published := make(chan struct{}, 8)
	for _, typ := range []event.Type{
		event.TypeTimesheetSubmitted,
		event.TypeTimesheetConfirmed,
		event.TypeTimesheetFinalized,
		event.TypeTimesheetRejected,
		event.TypeModificationRequested,
	} {
		events.Subscribe(typ, func(ctx context.Context, evt *event.Event) error {
			published <- struct{}{}
			return nil
		})
	}

	svc := newTestApprovalServiceWithEvents(store, events)
	res, err := svc.PerformAction(context.Background(), 1, 30, workflow.ActionHRConfirm, "")
	require.NoError(t, err)
	require.NotEqual(t, decision.OutcomeApproved, res.Decision.Outcome)

	require.NoError(t, events.Close())
	assert.Empty(t, published)
}
