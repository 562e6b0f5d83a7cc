package cli

import (
	"net/url"

	"github.com/vburojevic/adjust/pkg/adjust"
)

// SessionCmd records an app launch. A launch within the session interval of
// the previous one counts as a subsession.
type SessionCmd struct {
	Track trackFlags `embed:""`
}

// Run executes the session command
func (c *SessionCmd) Run(globals *Globals) error {
	return runTracker(globals, "session", c.Track, func(*adjust.Adjust) error {
		return nil
	})
}

// EventCmd tracks one event.
type EventCmd struct {
	Track trackFlags `embed:""`
	Token  string            `arg:"" help:"Event token (6 characters)"`
	Params map[string]string `short:"p" help:"Callback parameter key=value (repeatable)"`
}

// Run executes the event command
func (c *EventCmd) Run(globals *Globals) error {
	return runTracker(globals, "event", c.Track, func(a *adjust.Adjust) error {
		ev := adjust.NewEvent(c.Token)
		for k, v := range c.Params {
			ev.AddCallbackParameter(k, v)
		}
		a.TrackEvent(ev)
		return nil
	})
}

// RevenueCmd tracks revenue.
type RevenueCmd struct {
	Track trackFlags `embed:""`
	Amount float64           `arg:"" help:"Amount in cents"`
	Token  string            `short:"t" help:"Optional event token"`
	Params map[string]string `short:"p" help:"Callback parameter key=value (repeatable)"`
}

// Run executes the revenue command
func (c *RevenueCmd) Run(globals *Globals) error {
	return runTracker(globals, "revenue", c.Track, func(a *adjust.Adjust) error {
		a.TrackRevenue(c.Amount, c.Token, c.Params)
		return nil
	})
}

// OpenURLCmd reports an app open from a deep link. adjust_ query parameters
// become a click package.
type OpenURLCmd struct {
	Track trackFlags `embed:""`
	URL string `arg:"" help:"URL the app was opened with"`
}

// Run executes the open-url command
func (c *OpenURLCmd) Run(globals *Globals) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_URL", err.Error())
	}
	return runTracker(globals, "open-url", c.Track, func(a *adjust.Adjust) error {
		a.AppWillOpenURL(u)
		return nil
	})
}

// EnableCmd switches tracking on or off. The choice is persisted.
type EnableCmd struct {
	State string `arg:"" enum:"on,off" help:"on or off"`
}

// Run executes the enable command
func (c *EnableCmd) Run(globals *Globals) error {
	// disabling pauses delivery, so there is nothing to wait for
	return runTracker(globals, "enable", trackFlags{}, func(a *adjust.Adjust) error {
		a.SetEnabled(c.State == "on")
		return nil
	})
}
