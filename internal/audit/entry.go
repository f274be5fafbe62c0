package audit

// TimestampFormat is the wire format for audit timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Details carries the flattened decision context recorded with each event.
// All fields are plain strings (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Details struct {
	Level         string `json:"level,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Kind          string `json:"kind,omitempty"`
	FromMode      string `json:"from_mode,omitempty"`
	ToMode        string `json:"to_mode,omitempty"`
	Justification string `json:"justification,omitempty"`
	Setting       string `json:"setting,omitempty"`
	Value         string `json:"value,omitempty"`
	Resource      string `json:"resource,omitempty"`
}

// Event is one line in the hash-chained JSONL audit log. Immutable once
// appended; the chain makes removal and reordering detectable.
type Event struct {
	ID        string  `json:"id"`
	Timestamp string  `json:"ts"`
	Type      string  `json:"type"`
	Decision  string  `json:"decision"`
	Details   Details `json:"details"`
	Mode      string  `json:"mode"`
	Risk      int     `json:"risk"`
	RiskLevel string  `json:"risk_level"`
	PrevHash  string  `json:"prev_hash"`
}
