package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PackageBuilder collects everything needed to build an ActivityPackage.
type PackageBuilder struct {
	// Shared
	AppToken       string
	Environment    string
	ClientSDK      string
	UserAgent      string
	MacShortMD5    string
	UUID           string
	DefaultTracker string
	Device         DeviceInfo
	Now            time.Time

	// Session
	SessionCount    int
	SubsessionCount int
	SessionLength   time.Duration
	TimeSpent       time.Duration
	CreatedAt       time.Time
	LastInterval    *time.Duration

	// Event
	EventCount         int
	EventToken         string
	AmountInCents      *float64
	CallbackParameters map[string]string

	// Click
	Deeplink           string
	DeeplinkParameters map[string]string
	Attribution        *Attribution
	ClickTime          time.Time
}

// BuildSessionPackage builds a session start package.
func (b *PackageBuilder) BuildSessionPackage() *ActivityPackage {
	params := b.defaultParameters()
	b.addString(params, "default_tracker", b.DefaultTracker)
	return b.newPackage(KindSession, params, "")
}

// BuildEventPackage builds an event package.
func (b *PackageBuilder) BuildEventPackage() *ActivityPackage {
	params := b.defaultParameters()
	b.injectEventParameters(params)
	return b.newPackage(KindEvent, params, b.eventSuffix())
}

// BuildRevenuePackage builds a revenue package; AmountInCents must be set.
func (b *PackageBuilder) BuildRevenuePackage() *ActivityPackage {
	params := b.defaultParameters()
	b.injectEventParameters(params)
	b.addString(params, "amount", b.amountString())
	return b.newPackage(KindRevenue, params, b.revenueSuffix())
}

// BuildClickPackage builds a deep link click package.
func (b *PackageBuilder) BuildClickPackage(source string) *ActivityPackage {
	params := b.defaultParameters()
	b.addString(params, "source", source)
	b.addString(params, "deeplink", b.Deeplink)
	b.addDate(params, "click_time", b.ClickTime)
	b.addMap(params, "params", b.DeeplinkParameters)
	if b.Attribution != nil {
		b.addString(params, "tracker", b.Attribution.TrackerName)
		b.addString(params, "campaign", b.Attribution.Campaign)
		b.addString(params, "adgroup", b.Attribution.Adgroup)
		b.addString(params, "creative", b.Attribution.Creative)
	}
	return b.newPackage(KindClick, params, "")
}

func (b *PackageBuilder) newPackage(kind ActivityKind, params map[string]string, suffix string) *ActivityPackage {
	now := b.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &ActivityPackage{
		ID:         uuid.NewString(),
		Kind:       kind,
		Path:       kind.Path(),
		ClientSDK:  b.ClientSDK,
		UserAgent:  b.UserAgent,
		Suffix:     suffix,
		Parameters: params,
		CreatedAt:  now.Unix(),
	}
}

func (b *PackageBuilder) defaultParameters() map[string]string {
	params := map[string]string{}

	// general
	b.addString(params, "app_token", b.AppToken)
	b.addString(params, "environment", b.Environment)
	b.addString(params, "mac_md5", b.MacShortMD5)
	b.addString(params, "uuid", b.UUID)
	b.addDate(params, "created_at", b.CreatedAt)

	// session
	b.addInt(params, "session_count", b.SessionCount)
	b.addInt(params, "subsession_count", b.SubsessionCount)
	b.addDuration(params, "session_length", b.SessionLength)
	b.addDuration(params, "time_spent", b.TimeSpent)
	if b.LastInterval != nil {
		b.addDuration(params, "last_interval", *b.LastInterval)
	}

	return lo.Assign(params, b.Device.Parameters())
}

func (b *PackageBuilder) injectEventParameters(params map[string]string) {
	b.addInt(params, "event_count", b.EventCount)
	b.addString(params, "event_token", b.EventToken)
	b.addMap(params, "callback_params", b.CallbackParameters)
}

func (b *PackageBuilder) amountString() string {
	if b.AmountInCents == nil {
		return ""
	}
	return decimal.NewFromFloat(*b.AmountInCents).StringFixed(1)
}

func (b *PackageBuilder) eventSuffix() string {
	return fmt.Sprintf(" '%s'", b.EventToken)
}

func (b *PackageBuilder) revenueSuffix() string {
	if b.EventToken != "" {
		return fmt.Sprintf(" (%s cent, '%s')", b.amountString(), b.EventToken)
	}
	return fmt.Sprintf(" (%s cent)", b.amountString())
}

func (b *PackageBuilder) addString(params map[string]string, key, value string) {
	if value == "" {
		return
	}
	params[key] = value
}

func (b *PackageBuilder) addInt(params map[string]string, key string, value int) {
	if value < 0 {
		return
	}
	params[key] = strconv.Itoa(value)
}

// addDate writes epoch seconds.
func (b *PackageBuilder) addDate(params map[string]string, key string, value time.Time) {
	if value.IsZero() {
		return
	}
	params[key] = strconv.FormatInt(value.Unix(), 10)
}

// addDuration writes whole seconds, rounded.
func (b *PackageBuilder) addDuration(params map[string]string, key string, value time.Duration) {
	if value < 0 {
		return
	}
	params[key] = strconv.FormatInt(int64(value.Round(time.Second)/time.Second), 10)
}

func (b *PackageBuilder) addMap(params map[string]string, key string, value map[string]string) {
	if len(value) == 0 {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	params[key] = string(encoded)
}
