package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActivityState holds the session counters persisted between launches.
type ActivityState struct {
	EventCount      int            // Events tracked over the app lifetime, never reset
	SessionCount    int            // Sessions started (1, 2, 3...)
	SubsessionCount int            // Subsessions in the current session, reset to 1 per session
	SessionLength   time.Duration  // Active time in the current session
	TimeSpent       time.Duration  // Active time across all sessions
	LastActivity    time.Time      // Most recent observed activity
	CreatedAt       time.Time      // Start of the current session or time of the last event
	LastInterval    *time.Duration // Gap before the current session; nil until measured
	Enabled         bool           // Tracking switched on by the host
	UUID            string         // Install identifier sent with every package
}

// NewActivityState creates the state for the very first session.
func NewActivityState(now time.Time, uuid string) *ActivityState {
	s := &ActivityState{
		SessionCount: 1,
		CreatedAt:    now,
		Enabled:      true,
		UUID:         uuid,
	}
	s.ResetSessionAttributes(now)
	return s
}

// ResetSessionAttributes starts a fresh session window at now.
func (s *ActivityState) ResetSessionAttributes(now time.Time) {
	s.SubsessionCount = 1
	s.SessionLength = 0
	s.LastActivity = now
}

// InjectSessionAttributes copies the session counters into a builder.
func (s *ActivityState) InjectSessionAttributes(b *PackageBuilder) {
	b.SessionCount = s.SessionCount
	b.SubsessionCount = s.SubsessionCount
	b.SessionLength = s.SessionLength
	b.TimeSpent = s.TimeSpent
	b.CreatedAt = s.CreatedAt
	b.LastInterval = s.LastInterval
	b.UUID = s.UUID
}

// InjectEventAttributes copies the session counters plus the event count.
func (s *ActivityState) InjectEventAttributes(b *PackageBuilder) {
	s.InjectSessionAttributes(b)
	b.EventCount = s.EventCount
}

// Clone returns a deep copy.
func (s *ActivityState) Clone() *ActivityState {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastInterval != nil {
		li := *s.LastInterval
		c.LastInterval = &li
	}
	return &c
}

func (s *ActivityState) String() string {
	return fmt.Sprintf("ec:%d sc:%d ssc:%d sl:%.1f ts:%.1f la:%s",
		s.EventCount,
		s.SessionCount,
		s.SubsessionCount,
		s.SessionLength.Seconds(),
		s.TimeSpent.Seconds(),
		s.LastActivity.Format("15:04:05"),
	)
}

// activityStateRecord is the persisted form. Timestamps are Unix nanoseconds,
// durations nanoseconds; -1 marks an unset value.
type activityStateRecord struct {
	EventCount      int64  `json:"event_count" plist:"event_count"`
	SessionCount    int64  `json:"session_count" plist:"session_count"`
	SubsessionCount int64  `json:"subsession_count" plist:"subsession_count"`
	SessionLength   int64  `json:"session_length" plist:"session_length"`
	TimeSpent       int64  `json:"time_spent" plist:"time_spent"`
	LastActivity    int64  `json:"last_activity" plist:"last_activity"`
	CreatedAt       int64  `json:"created_at" plist:"created_at"`
	LastInterval    int64  `json:"last_interval" plist:"last_interval"`
	Enabled         bool   `json:"enabled" plist:"enabled"`
	UUID            string `json:"uuid" plist:"uuid"`
}

const unset = -1

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return unset
	}
	return t.UnixNano()
}

func decodeTime(n int64) time.Time {
	if n == unset {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s ActivityState) record() activityStateRecord {
	r := activityStateRecord{
		EventCount:      int64(s.EventCount),
		SessionCount:    int64(s.SessionCount),
		SubsessionCount: int64(s.SubsessionCount),
		SessionLength:   int64(s.SessionLength),
		TimeSpent:       int64(s.TimeSpent),
		LastActivity:    encodeTime(s.LastActivity),
		CreatedAt:       encodeTime(s.CreatedAt),
		LastInterval:    unset,
		Enabled:         s.Enabled,
		UUID:            s.UUID,
	}
	if s.LastInterval != nil {
		r.LastInterval = int64(*s.LastInterval)
	}
	return r
}

func (s *ActivityState) fromRecord(r activityStateRecord) {
	*s = ActivityState{
		EventCount:      int(r.EventCount),
		SessionCount:    int(r.SessionCount),
		SubsessionCount: int(r.SubsessionCount),
		SessionLength:   time.Duration(r.SessionLength),
		TimeSpent:       time.Duration(r.TimeSpent),
		LastActivity:    decodeTime(r.LastActivity),
		CreatedAt:       decodeTime(r.CreatedAt),
		Enabled:         r.Enabled,
		UUID:            r.UUID,
	}
	if r.LastInterval != unset {
		li := time.Duration(r.LastInterval)
		s.LastInterval = &li
	}
}

func (s ActivityState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.record())
}

func (s *ActivityState) UnmarshalJSON(b []byte) error {
	var r activityStateRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	s.fromRecord(r)
	return nil
}

// MarshalPlist implements plist.Marshaler.
func (s ActivityState) MarshalPlist() (interface{}, error) {
	return s.record(), nil
}

// UnmarshalPlist implements plist.Unmarshaler.
func (s *ActivityState) UnmarshalPlist(unmarshal func(interface{}) error) error {
	var r activityStateRecord
	if err := unmarshal(&r); err != nil {
		return err
	}
	s.fromRecord(r)
	return nil
}
