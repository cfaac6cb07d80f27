package crash

import "time"

// Summary is the listing row for a stored report: enough to pick one
// out of an archive without loading the full payload.
type Summary struct {
	UUID       string    `json:"uuid"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	IsCrash    bool      `json:"is_crash"`
	Incomplete bool      `json:"incomplete"`
	Signum     int       `json:"signum,omitempty"`
	Signame    string    `json:"signame,omitempty"`
	PID        int       `json:"pid,omitempty"`
	Message    string    `json:"message,omitempty"`
	FrameCount int       `json:"frame_count"`
}
