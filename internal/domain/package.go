package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ActivityKind identifies what a package reports.
type ActivityKind string

const (
	KindUnknown ActivityKind = "unknown"
	KindSession ActivityKind = "session"
	KindEvent   ActivityKind = "event"
	KindRevenue ActivityKind = "revenue"
	KindClick   ActivityKind = "click"
)

// ParseActivityKind maps a string onto a kind, unknown for anything else.
func ParseActivityKind(s string) ActivityKind {
	switch ActivityKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSession:
		return KindSession
	case KindEvent:
		return KindEvent
	case KindRevenue:
		return KindRevenue
	case KindClick:
		return KindClick
	}
	return KindUnknown
}

// Path returns the collector endpoint for the kind.
func (k ActivityKind) Path() string {
	switch k {
	case KindSession:
		return "/startup"
	case KindEvent:
		return "/event"
	case KindRevenue:
		return "/revenue"
	case KindClick:
		return "/sdk_click"
	}
	return ""
}

// ActivityPackage is a fully parameterized request waiting for delivery.
// Parameters are never modified after the package is built.
type ActivityPackage struct {
	ID         string            `json:"id" plist:"id"`
	Kind       ActivityKind      `json:"kind" plist:"kind"`
	Path       string            `json:"path" plist:"path"`
	ClientSDK  string            `json:"client_sdk" plist:"client_sdk"`
	UserAgent  string            `json:"user_agent" plist:"user_agent"`
	Suffix     string            `json:"suffix" plist:"suffix"`
	Parameters map[string]string `json:"parameters" plist:"parameters"`
	CreatedAt  int64             `json:"created_at" plist:"created_at"` // Unix seconds
}

// EventToken returns the event token parameter, if any.
func (p *ActivityPackage) EventToken() string {
	return p.Parameters["event_token"]
}

// ParametersCopy returns a copy of the parameters safe to extend.
func (p *ActivityPackage) ParametersCopy() map[string]string {
	out := make(map[string]string, len(p.Parameters)+1)
	for k, v := range p.Parameters {
		out[k] = v
	}
	return out
}

// BuiltAt returns the package build time.
func (p *ActivityPackage) BuiltAt() time.Time {
	return time.Unix(p.CreatedAt, 0)
}

// SuccessMessage is logged when the collector accepts the package.
func (p *ActivityPackage) SuccessMessage() string {
	switch p.Kind {
	case KindSession:
		return "Tracked session"
	case KindEvent:
		return "Tracked event" + p.Suffix
	case KindRevenue:
		return "Tracked revenue" + p.Suffix
	case KindClick:
		return "Tracked click" + p.Suffix
	}
	return "Tracked " + string(p.Kind) + p.Suffix
}

// FailureMessage is logged when delivery fails.
func (p *ActivityPackage) FailureMessage() string {
	switch p.Kind {
	case KindSession:
		return "Failed to track session"
	case KindEvent:
		return "Failed to track event" + p.Suffix
	case KindRevenue:
		return "Failed to track revenue" + p.Suffix
	case KindClick:
		return "Failed to track click" + p.Suffix
	}
	return "Failed to track " + string(p.Kind) + p.Suffix
}

func (p *ActivityPackage) String() string {
	return fmt.Sprintf("%s%s", p.Kind, p.Suffix)
}

// ExtendedString lists every parameter, sorted, for verbose logs.
func (p *ActivityPackage) ExtendedString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Path:      %s\n", p.Path)
	fmt.Fprintf(&b, "ClientSdk: %s\n", p.ClientSDK)
	fmt.Fprintf(&b, "UserAgent: %s\n", p.UserAgent)

	keys := make([]string, 0, len(p.Parameters))
	for k := range p.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("Parameters:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n\t%-22s %s", k, p.Parameters[k])
	}
	return b.String()
}
