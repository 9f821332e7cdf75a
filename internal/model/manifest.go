package model

import "time"

// Manifest describes one completed store call.
type Manifest struct {
	JobID       JobID         `json:"job_id"`
	Endpoint    string        `json:"end_point"`
	WriteType   string        `json:"write_type"`
	Rows        int           `json:"number_of_rows"`
	Chunks      int           `json:"number_of_chunks"`
	Location    string        `json:"write_path"`
	ExtractedAt time.Time     `json:"date_extracted"`
	Elapsed     time.Duration `json:"time_elapsed_ns"`
}
