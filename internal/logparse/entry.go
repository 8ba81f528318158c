package logparse

import "time"

// ResponseTimeUnknown is the sentinel stored when a log format does not
// carry a response time (the combined log format does not). Downstream
// consumers must treat it as "not measured", never as a 0ms response.
const ResponseTimeUnknown int64 = 0

// Entry is the normalized record every supported log format parses into.
type Entry struct {
	Timestamp      time.Time `json:"timestamp"`
	IP             string    `json:"ip"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	Status         int       `json:"status"`
	Bytes          int64     `json:"bytes"`
	UserAgent      string    `json:"user_agent"`
	ResponseTimeMS int64     `json:"response_time_ms"`
}
