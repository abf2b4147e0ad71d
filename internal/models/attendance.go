package models

import "time"

// AttendanceRecord is one clock-in/clock-out pair. It is open while ExitTime
// is nil.
type AttendanceRecord struct {
	ID              string     `json:"_id"`
	UserRUT         string     `json:"user_rut"`
	EntryTime       time.Time  `json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time"`
	GPSPosition     string     `json:"gps_position"`
	GPSPositionExit *string    `json:"gps_position_exit,omitempty"`
	Token           string     `json:"token"`
}

// Open reports whether the record still lacks an exit.
func (r AttendanceRecord) Open() bool {
	return r.ExitTime == nil
}
