package model

import "time"

type ScheduleWindow struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	ExpertID    string    `json:"expert_id" bson:"expert_id"`
	Day         Weekday   `json:"day" bson:"day" validate:"required,weekday"`
	StartTime   string    `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime     string    `json:"end_time" bson:"end_time" validate:"required,hhmm"`
	IsAvailable bool      `json:"is_available" bson:"is_available"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Bounds returns the window as minutes after midnight.
func (w ScheduleWindow) Bounds() (start, end int, err error) {
	if start, err = ParseClock(w.StartTime); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(w.EndTime); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// WeeklySchedule replaces an expert's working week. Days not listed are removed.
type WeeklySchedule struct {
	Windows []ScheduleWindow `json:"windows" validate:"omitempty,max=70,dive"`
}

// Days returns the distinct days present, in week order.
func (s WeeklySchedule) Days() []Weekday {
	seen := make(map[Weekday]bool, len(Weekdays))
	for _, w := range s.Windows {
		seen[w.Day] = true
	}
	days := make([]Weekday, 0, len(seen))
	for _, d := range Weekdays {
		if seen[d] {
			days = append(days, d)
		}
	}
	return days
}
