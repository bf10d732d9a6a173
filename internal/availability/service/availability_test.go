package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"expertly/pkg/config"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/logger"
	"expertly/pkg/model"
)

type mockDirectory struct {
	expert *model.Expert
	err    error
}

func (m *mockDirectory) GetExpert(ctx context.Context, id string) (*model.Expert, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.expert, nil
}

func (m *mockDirectory) ExpertLocation(expert *model.Expert) *time.Location {
	if loc, err := time.LoadLocation(expert.TimeZone); err == nil {
		return loc
	}
	return time.UTC
}

type mockSchedules struct {
	windowsFunc func(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error)
}

func (m *mockSchedules) AvailableWindows(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error) {
	return m.windowsFunc(ctx, expertID, day)
}

type mockLedger struct {
	findFunc func(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error)
}

func (m *mockLedger) FindByExpertBetween(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error) {
	return m.findFunc(ctx, expertID, from, to)
}

// Thursday 15 October 2026, so the following Monday is the 19th.
var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestService(dir *mockDirectory, sched *mockSchedules, ledger *mockLedger) *availabilityService {
	return &availabilityService{
		experts:   dir,
		schedules: sched,
		ledger:    ledger,
		cfg:       &config.Config{Log: logger.Discard()},
		now:       func() time.Time { return fixedNow },
	}
}

func mondayWindow() *mockSchedules {
	return &mockSchedules{windowsFunc: func(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error) {
		if day != model.Monday {
			return nil, nil
		}
		return []*model.ScheduleWindow{{ID: "w1", Day: model.Monday, StartTime: "09:00", EndTime: "17:00", IsAvailable: true}}, nil
	}}
}

func TestForDate_MondayWithOpenAppointment(t *testing.T) {
	var gotFrom, gotTo time.Time
	ledger := &mockLedger{findFunc: func(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error) {
		gotFrom, gotTo = from, to
		start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
		end := start.Add(time.Hour)
		return []*model.Appointment{{From: start, To: &end, IsOpen: true, Status: model.StatusPending}}, nil
	}}
	svc := newTestService(&mockDirectory{expert: &model.Expert{ID: "e1", TimeZone: "UTC"}}, mondayWindow(), ledger)

	got, err := svc.ForDate(context.Background(), "e1", "2026-10-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Available || got.Day != model.Monday {
		t.Fatalf("got %+v, want available Monday", got)
	}
	slots := got.Windows[0].Slots
	want := []model.TimeRange{{From: "09:00", To: "10:00"}, {From: "11:00", To: "17:00"}}
	if len(slots) != len(want) || slots[0] != want[0] || slots[1] != want[1] {
		t.Errorf("slots = %+v, want %+v", slots, want)
	}
	if !gotFrom.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)) || gotTo.Sub(gotFrom) != 24*time.Hour {
		t.Errorf("ledger queried [%s, %s), want the whole day", gotFrom, gotTo)
	}
}

func TestForDate_NoScheduleIsNotAnError(t *testing.T) {
	svc := newTestService(&mockDirectory{expert: &model.Expert{ID: "e1"}}, mondayWindow(), &mockLedger{
		findFunc: func(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error) {
			t.Fatal("ledger should not be queried without windows")
			return nil, nil
		},
	})

	got, err := svc.ForDate(context.Background(), "e1", "2026-10-20") // Tuesday
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Available || got.Message == "" || len(got.Windows) != 0 {
		t.Errorf("got %+v, want empty availability with message", got)
	}
}

func TestForDate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		dir      *mockDirectory
		ledger   error
		wantCode string
	}{
		{"missing date", "", &mockDirectory{expert: &model.Expert{ID: "e1"}}, nil, apperrors.CodeValidation},
		{"malformed date", "19-10-2026", &mockDirectory{expert: &model.Expert{ID: "e1"}}, nil, apperrors.CodeValidation},
		{"past date", "2026-10-14", &mockDirectory{expert: &model.Expert{ID: "e1"}}, nil, apperrors.CodeInvalidInput},
		{"unknown expert", "2026-10-19", &mockDirectory{err: apperrors.NotFoundWithID("Expert", "e1")}, nil, apperrors.CodeNotFound},
		{"past date for unknown expert", "2026-10-14", &mockDirectory{err: apperrors.NotFoundWithID("Expert", "e1")}, nil, apperrors.CodeInvalidInput},
		{"ledger failure", "2026-10-19", &mockDirectory{expert: &model.Expert{ID: "e1"}}, errors.New("boom"), apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &mockLedger{findFunc: func(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error) {
				return nil, tt.ledger
			}}
			svc := newTestService(tt.dir, mondayWindow(), ledger)

			_, err := svc.ForDate(context.Background(), "e1", tt.date)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestForDate_TodayIsAllowed(t *testing.T) {
	svc := newTestService(&mockDirectory{expert: &model.Expert{ID: "e1"}}, mondayWindow(), &mockLedger{})
	if _, err := svc.ForDate(context.Background(), "e1", "2026-10-15"); err != nil {
		t.Errorf("today should be accepted, got %v", err)
	}
}
