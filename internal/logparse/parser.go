package logparse

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// combinedRe matches the common/combined web-server log format:
//
//	IP - - [timestamp] "METHOD PATH PROTO" STATUS BYTES "referrer" "user-agent"
//
// Status and bytes are required to be plain integers; lines that log "-" for
// the byte count do not match and are rejected as a whole rather than
// producing a partially-filled record.
var combinedRe = regexp.MustCompile(
	`^(\S+) \S+ \S+ \[([^\]]+)\] "(\S+) (\S+)[^"]*" (\d{3}) (\d+) "[^"]*" "([^"]*)"`)

const combinedTimeLayout = "02/Jan/2006:15:04:05 -0700"

// jsonLine mirrors the single-line JSON log shape.
type jsonLine struct {
	Timestamp    string `json:"timestamp"`
	IP           string `json:"ip"`
	Method       string `json:"method"`
	Path         string `json:"path"`
	Status       *int   `json:"status"`
	Bytes        *int64 `json:"bytes"`
	UserAgent    string `json:"user_agent"`
	ResponseTime int64  `json:"response_time"`
}

// Parse turns one raw log line into an Entry. Formats are attempted in a
// fixed order: combined log format first, then single-line JSON. The second
// return value is false when neither format matches or a required numeric
// field does not parse; Parse never returns an error.
func Parse(line string) (Entry, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Entry{}, false
	}
	if e, ok := parseCombined(line); ok {
		return e, true
	}
	return parseJSONLine(line)
}

func parseCombined(line string) (Entry, bool) {
	m := combinedRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	ts, err := time.Parse(combinedTimeLayout, m[2])
	if err != nil {
		return Entry{}, false
	}
	status, err := strconv.Atoi(m[5])
	if err != nil {
		return Entry{}, false
	}
	bytes, err := strconv.ParseInt(m[6], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Timestamp: ts,
		IP:        m[1],
		Method:    m[3],
		Path:      m[4],
		Status:    status,
		Bytes:     bytes,
		UserAgent: m[7],
		// The combined format carries no response time.
		ResponseTimeMS: ResponseTimeUnknown,
	}, true
}

func parseJSONLine(line string) (Entry, bool) {
	if !strings.HasPrefix(strings.TrimSpace(line), "{") {
		return Entry{}, false
	}
	var j jsonLine
	if err := json.Unmarshal([]byte(line), &j); err != nil {
		return Entry{}, false
	}
	if j.Status == nil || j.Bytes == nil || *j.Bytes < 0 {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, j.Timestamp)
	if err != nil {
		return Entry{}, false
	}
	rt := j.ResponseTime
	if rt < 0 {
		rt = ResponseTimeUnknown
	}
	return Entry{
		Timestamp:      ts,
		IP:             j.IP,
		Method:         j.Method,
		Path:           j.Path,
		Status:         *j.Status,
		Bytes:          *j.Bytes,
		UserAgent:      j.UserAgent,
		ResponseTimeMS: rt,
	}, true
}

// BatchStats reports how much of a submitted batch was usable. Malformed
// lines are only visible as the difference between the two counts.
type BatchStats struct {
	LinesSubmitted    int `json:"lines_submitted"`
	EntriesRecognized int `json:"entries_recognized"`
}

// ParseBatch reads one log line per row from r, skipping lines that match no
// known format. Output order follows input order. A malformed line is never
// fatal to the batch.
func ParseBatch(r io.Reader) ([]Entry, BatchStats, error) {
	var (
		entries []Entry
		stats   BatchStats
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.LinesSubmitted++
		if e, ok := Parse(line); ok {
			entries = append(entries, e)
			stats.EntriesRecognized++
		}
	}
	if err := sc.Err(); err != nil {
		return entries, stats, err
	}
	return entries, stats, nil
}
