package model

// TimeRange is a free interval on the expert's local clock, [From, To).
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WindowAvailability is the free time left in one schedule window. Message is set instead
// of Slots when the window is fully taken.
type WindowAvailability struct {
	WindowID  string      `json:"window_id,omitempty"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
	Slots     []TimeRange `json:"slots,omitempty"`
	Message   string      `json:"message,omitempty"`
}

type Availability struct {
	ExpertID  string               `json:"expert_id"`
	Date      string               `json:"date"`
	Day       Weekday              `json:"day"`
	TimeZone  string               `json:"time_zone"`
	Available bool                 `json:"available"`
	Message   string               `json:"message,omitempty"`
	Windows   []WindowAvailability `json:"windows"`
}
