package cli

import (
	"context"

	"github.com/samber/lo"

	"github.com/vburojevic/adjust/internal/domain"
	"github.com/vburojevic/adjust/internal/filter"
	"github.com/vburojevic/adjust/internal/output"
	"github.com/vburojevic/adjust/internal/store"
)

// QueueCmd lists the persisted delivery queue without starting the SDK.
type QueueCmd struct {
	Where []string `short:"w" help:"Filter packages: field op value (kind=event, param.event_token^ab, created_at>=1700000000)"`
	Clear bool     `help:"Delete every queued package"`
}

// Run executes the queue command
func (c *QueueCmd) Run(globals *Globals) error {
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_WHERE", err.Error(), "use field=value, field~regex or field>=number")
	}

	st, closeStore, err := openStore(globals.Config.Store)
	if err != nil {
		return outputErrorCommon(globals, "STORE_OPEN", err.Error(), "check store.backend and store.path")
	}
	defer func() { _ = closeStore() }()

	ctx := context.Background()
	if c.Clear {
		if err := st.Delete(ctx, store.SlotPackageQueue); err != nil {
			return outputErrorCommon(globals, "STORE_WRITE", err.Error())
		}
	}

	queue, err := store.Read[[]*domain.ActivityPackage](ctx, st, store.SlotPackageQueue)
	if err != nil {
		return outputErrorCommon(globals, "STORE_READ", err.Error(), "the queue slot may be written with another codec")
	}
	var pkgs []*domain.ActivityPackage
	if queue != nil {
		pkgs = lo.Compact(*queue)
	}
	pkgs = where.Apply(pkgs)

	if globals.ndjson() {
		return output.NewNDJSONWriter(globals.Stdout).WritePackages(pkgs)
	}
	return output.NewTextWriter(globals.Stdout).WritePackages(pkgs, globals.clk().Now())
}

// StateCmd shows the persisted session state and attribution.
type StateCmd struct{}

// Run executes the state command
func (c *StateCmd) Run(globals *Globals) error {
	st, closeStore, err := openStore(globals.Config.Store)
	if err != nil {
		return outputErrorCommon(globals, "STORE_OPEN", err.Error(), "check store.backend and store.path")
	}
	defer func() { _ = closeStore() }()

	ctx := context.Background()
	state, err := store.Read[domain.ActivityState](ctx, st, store.SlotActivityState)
	if err != nil {
		return outputErrorCommon(globals, "STORE_READ", err.Error())
	}
	attr, err := store.Read[domain.Attribution](ctx, st, store.SlotAttribution)
	if err != nil {
		return outputErrorCommon(globals, "STORE_READ", err.Error())
	}

	if globals.ndjson() {
		if state == nil {
			return outputErrorCommon(globals, "NO_STATE", "no session has been tracked yet", "run adjust session first")
		}
		return output.NewNDJSONWriter(globals.Stdout).WriteState(state, attr)
	}
	output.NewTextWriter(globals.Stdout).WriteState(state, attr, globals.clk().Now())
	return nil
}
