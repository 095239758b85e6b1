package timeentry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/timesheet/internal/events"
	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/repository"
	"github.com/hitoshi/timesheet/internal/security"
)

type capturePublisher struct {
	events []events.Event
}

func (c *capturePublisher) Publish(ctx context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return nil
}
func (c *capturePublisher) Close() error { return nil }

type mockRecorder struct {
	mutations []string
}

func (m *mockRecorder) RecordMutation(entity, action string) {
	m.mutations = append(m.mutations, entity+"/"+action)
}

func intPtr(i int) *int { return &i }
func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }
func timePtr(t time.Time) *time.Time { return &t }

type fixture struct {
	svc       *Service
	store     *repository.MemoryStore
	pub       *capturePublisher
	rec       *mockRecorder
	userID    int64
	projectID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	u, err := store.Users().Create(ctx, model.UserInput{Username: "demo", Password: "password", Name: "Alex Johnson"})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	p, err := store.Projects().Create(ctx, model.ProjectInput{Name: "Website Redesign", Color: model.DefaultProjectColor, IsActive: true})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	pub := &capturePublisher{}
	rec := &mockRecorder{}
	svc := NewService(store.TimeEntries(), store.Projects(), store.Users(),
		security.NewTextSanitizer(), events.NewEmitter(pub, nil, nil), rec)

	return &fixture{svc: svc, store: store, pub: pub, rec: rec, userID: u.ID, projectID: p.ID}
}

func (f *fixture) validParams() Params {
	return Params{
		ProjectID: f.projectID,
		UserID:    f.userID,
		Task:      "Frontend Development",
		Date:      timePtr(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)),
		Duration:  intPtr(135),
		Notes:     strPtr("Working on responsive design"),
	}
}

func assertValidationFields(t *testing.T, err error, want ...string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Fatalf("code = %s, want %s", apiErr.Code, model.ErrCodeValidationFailed)
	}
	if len(apiErr.Fields) != len(want) {
		t.Fatalf("fields = %+v, want %v", apiErr.Fields, want)
	}
	for i, f := range apiErr.Fields {
		if f.Field != want[i] {
			t.Errorf("field %d = %s, want %s", i, f.Field, want[i])
		}
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.Create(context.Background(), f.validParams())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if e.ID != 1 || e.Duration != 135 || !e.IsBillable {
		t.Errorf("entry = %+v", e)
	}
	if e.Notes == nil || *e.Notes != "Working on responsive design" {
		t.Errorf("Notes = %v", e.Notes)
	}
	if len(f.pub.events) != 1 || f.pub.events[0].Type != events.TimeEntryCreated {
		t.Errorf("events = %+v", f.pub.events)
	}
	if len(f.rec.mutations) != 1 || f.rec.mutations[0] != "time_entry/create" {
		t.Errorf("mutations = %v", f.rec.mutations)
	}
}

func TestCreate_ZeroDurationAllowed(t *testing.T) {
	f := newFixture(t)
	params := f.validParams()
	params.Duration = intPtr(0)
	params.IsBillable = boolPtr(false)

	e, err := f.svc.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if e.Duration != 0 || e.IsBillable {
		t.Errorf("entry = %+v", e)
	}
}

func TestCreate_KeepsEscapedTextVerbatim(t *testing.T) {
	f := newFixture(t)
	params := f.validParams()
	params.Task = "&lt;b&gt;Fix"
	params.Notes = strPtr("latency < 200ms & retries > 3")

	e, err := f.svc.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if e.Task != "&lt;b&gt;Fix" {
		t.Errorf("Task = %q", e.Task)
	}
	if e.Notes == nil || *e.Notes != "latency < 200ms & retries > 3" {
		t.Errorf("Notes = %v", e.Notes)
	}

	// 返された値で再保存しても変化しない
	params.Task, params.Notes = e.Task, e.Notes
	again, err := f.svc.Update(context.Background(), e.ID, params)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if again.Task != e.Task || *again.Notes != *e.Notes {
		t.Errorf("re-save changed values: %+v -> %+v", e, again)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		want   []string
	}{
		{"作業内容が空", func(p *Params) { p.Task = "  " }, []string{"task"}},
		{"作業時間が負", func(p *Params) { p.Duration = intPtr(-5) }, []string{"duration"}},
		{"作業時間なし", func(p *Params) { p.Duration = nil }, []string{"duration"}},
		{"日付なし", func(p *Params) { p.Date = nil }, []string{"date"}},
		{"プロジェクトIDなし", func(p *Params) { p.ProjectID = 0 }, []string{"projectId"}},
		{"複数", func(p *Params) { p.UserID = 0; p.Task = "" }, []string{"userId", "task"}},
		{"存在しないプロジェクト", func(p *Params) { p.ProjectID = 99 }, []string{"projectId"}},
		{"存在しないユーザー", func(p *Params) { p.UserID = 99 }, []string{"userId"}},
		{"作業内容にタグ", func(p *Params) { p.Task = "<b>Fix</b>" }, []string{"task"}},
		{"メモに山括弧のメールアドレス", func(p *Params) { p.Notes = strPtr("Ping Tom <tom@acme.io> re: API") }, []string{"notes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			params := f.validParams()
			tt.mutate(&params)

			_, err := f.svc.Create(context.Background(), params)
			assertValidationFields(t, err, tt.want...)

			entries, _ := f.store.TimeEntries().List(context.Background(), repository.TimeEntryFilter{})
			if len(entries) != 0 {
				t.Errorf("no entry should be stored, got %d", len(entries))
			}
			if len(f.pub.events) != 0 {
				t.Error("no event should be published")
			}
		})
	}
}

func TestUpdate_FullReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.validParams())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	params := f.validParams()
	params.Task = "API Integration"
	params.Notes = nil
	params.Duration = intPtr(105)

	updated, err := f.svc.Update(ctx, created.ID, params)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Task != "API Integration" || updated.Duration != 105 || updated.Notes != nil {
		t.Errorf("updated = %+v", updated)
	}
	if last := f.pub.events[len(f.pub.events)-1]; last.Type != events.TimeEntryUpdated || last.ID != created.ID {
		t.Errorf("last event = %+v", last)
	}
}

func TestUpdate_UnknownLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, f.validParams()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	before, _ := f.store.TimeEntries().List(ctx, repository.TimeEntryFilter{})

	_, err := f.svc.Update(ctx, 999, f.validParams())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTimeEntryNotFound {
		t.Fatalf("err = %v, want TIME_ENTRY_NOT_FOUND", err)
	}

	after, _ := f.store.TimeEntries().List(ctx, repository.TimeEntryFilter{})
	if len(before) != len(after) || before[0].Task != after[0].Task {
		t.Errorf("store changed: before %+v, after %+v", before, after)
	}
	if len(f.pub.events) != 1 {
		t.Errorf("events = %+v, want only the create event", f.pub.events)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, f.validParams())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := f.svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := f.svc.Get(ctx, e.ID); err == nil {
		t.Error("entry should be gone")
	}

	err = f.svc.Delete(ctx, e.ID)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTimeEntryNotFound {
		t.Errorf("second delete err = %v, want TIME_ENTRY_NOT_FOUND", err)
	}
}

func TestList_PassesFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.validParams()
	second := f.validParams()
	second.Date = timePtr(first.Date.AddDate(0, 0, 1))
	for _, p := range []Params{first, second} {
		if _, err := f.svc.Create(ctx, p); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	got, err := f.svc.List(ctx, repository.TimeEntryFilter{StartDate: second.Date})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 || !got[0].Date.Equal(*second.Date) {
		t.Errorf("List = %+v", got)
	}
}
