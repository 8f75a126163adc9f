package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Message types written by the host
const (
	MessageTypeInfo  = "INFO"
	MessageTypeError = "ERROR"
)

// Message is one host notification, keyed by its millisecond timestamp.
type Message struct {
	Millis      int64           `json:"millis"`
	Type        string          `json:"type"`
	Text        string          `json:"message,omitempty"`
	ErrorType   string          `json:"error_type,omitempty"`
	Description string          `json:"description,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Time converts the key timestamp.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Millis)
}

// IsError reports whether the host flagged this message as an error.
func (m Message) IsError() bool {
	return m.Type == MessageTypeError
}

// MessageLog is the stored state of the messages stream. LastMillis is the
// highest timestamp already delivered and survives restarts.
type MessageLog struct {
	Messages   []Message
	LastMillis int64
}

// ParseMessages decodes the messages file and returns the messages sorted by
// ascending timestamp (numerically, not by key text).
func ParseMessages(raw []byte) ([]Message, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, NewMalformedContentError(StreamMessages, err)
	}
	out := make([]Message, 0, len(records))
	for key, rec := range records {
		millis, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, NewMalformedContentError(StreamMessages, fmt.Errorf("timestamp key %q: %w", key, err))
		}
		var m Message
		if err := json.Unmarshal(rec, &m); err != nil {
			return nil, NewMalformedContentError(StreamMessages, err)
		}
		m.Millis = millis
		m.Raw = json.RawMessage(rec)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Millis < out[j].Millis })
	return out, nil
}

// MaxMillis returns the highest timestamp in msgs, or floor if none is higher.
func MaxMillis(msgs []Message, floor int64) int64 {
	for _, m := range msgs {
		if m.Millis > floor {
			floor = m.Millis
		}
	}
	return floor
}

// PendingMessages returns the sorted messages strictly newer than after.
func PendingMessages(sorted []Message, after int64) []Message {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Millis > after })
	return sorted[i:]
}
