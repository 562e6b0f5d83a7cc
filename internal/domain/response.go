package domain

import "time"

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// OutcomeSuccess: the collector accepted the package; drop it and continue.
	OutcomeSuccess Outcome = iota
	// OutcomePermanentFailure: the payload can never succeed; drop it.
	OutcomePermanentFailure
	// OutcomeRetryableFailure: keep the package at the head for a later attempt.
	OutcomeRetryableFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePermanentFailure:
		return "permanent_failure"
	case OutcomeRetryableFailure:
		return "retryable_failure"
	}
	return "unknown"
}

// ResponseData is the classified result of delivering one package.
type ResponseData struct {
	Outcome     Outcome
	StatusCode  int // 0 when no response was received
	PackageID   string
	Kind        ActivityKind
	EventToken  string
	JSON        map[string]string // decoded response body, never nil
	Body        string
	Error       string
	Message     string
	Timestamp   string
	Adid        string
	Deeplink    string
	Attribution *Attribution
	ReceivedAt  time.Time
}

// NewResponseData starts a response for pkg with an empty body.
func NewResponseData(pkg *ActivityPackage) *ResponseData {
	r := &ResponseData{
		Outcome: OutcomeRetryableFailure,
		JSON:    map[string]string{},
	}
	if pkg != nil {
		r.PackageID = pkg.ID
		r.Kind = pkg.Kind
		r.EventToken = pkg.EventToken()
	}
	return r
}

// Success reports whether the collector accepted the package.
func (r *ResponseData) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// WillRetry reports whether the package stays queued.
func (r *ResponseData) WillRetry() bool {
	return r.Outcome == OutcomeRetryableFailure
}

// SetJSON stores the decoded body and lifts the well-known keys.
func (r *ResponseData) SetJSON(json map[string]string, body string) {
	if json == nil {
		json = map[string]string{}
	}
	r.JSON = json
	r.Body = body
	r.Message = json["message"]
	r.Timestamp = json["timestamp"]
	r.Adid = json["adid"]
	r.Deeplink = json["deeplink"]
	r.Attribution = AttributionFromJSON(json)
	if r.Error == "" {
		r.Error = json["error"]
	}
}

// SessionSuccess is passed to the session success callback.
type SessionSuccess struct {
	Message   string
	Timestamp string
	Adid      string
	JSON      map[string]string
}

// SessionFailure is passed to the session failure callback.
type SessionFailure struct {
	Message   string
	Timestamp string
	Adid      string
	WillRetry bool
	JSON      map[string]string
}

// EventSuccess is passed to the event success callback.
type EventSuccess struct {
	EventToken string
	Message    string
	Timestamp  string
	Adid       string
	JSON       map[string]string
}

// EventFailure is passed to the event failure callback.
type EventFailure struct {
	EventToken string
	Message    string
	Timestamp  string
	Adid       string
	WillRetry  bool
	JSON       map[string]string
}

func (r *ResponseData) message() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

// SessionSuccess converts the response for the session success callback.
func (r *ResponseData) SessionSuccess() SessionSuccess {
	return SessionSuccess{Message: r.message(), Timestamp: r.Timestamp, Adid: r.Adid, JSON: r.JSON}
}

// SessionFailure converts the response for the session failure callback.
func (r *ResponseData) SessionFailure() SessionFailure {
	return SessionFailure{Message: r.message(), Timestamp: r.Timestamp, Adid: r.Adid, WillRetry: r.WillRetry(), JSON: r.JSON}
}

// EventSuccess converts the response for the event success callback.
func (r *ResponseData) EventSuccess() EventSuccess {
	return EventSuccess{EventToken: r.EventToken, Message: r.message(), Timestamp: r.Timestamp, Adid: r.Adid, JSON: r.JSON}
}

// EventFailure converts the response for the event failure callback.
func (r *ResponseData) EventFailure() EventFailure {
	return EventFailure{EventToken: r.EventToken, Message: r.message(), Timestamp: r.Timestamp, Adid: r.Adid, WillRetry: r.WillRetry(), JSON: r.JSON}
}
