// Package flow holds the per-purchase-context receipt settings.
package flow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/fees"
	"ReceiptPoll/internal/poller"
	"ReceiptPoll/internal/status"
)

const (
	Circle     = "circle"
	Event      = "event"
	Tournament = "tournament"
)

type Profile struct {
	Name       string
	Policy     status.Policy
	Categories []fees.Category
	Mode       poller.Mode
	Interval   time.Duration
}

var profiles = map[string]Profile{
	Circle: {
		Name:       Circle,
		Policy:     status.CirclePolicy,
		Categories: []fees.Category{fees.CategoryEWallet},
		Mode:       poller.SingleShot,
		Interval:   poller.DefaultInterval,
	},
	Event: {
		Name:       Event,
		Policy:     status.EventPolicy,
		Categories: []fees.Category{fees.CategoryEWallet, fees.CategoryVA},
		Mode:       poller.PollForever,
		Interval:   poller.DefaultInterval,
	},
	Tournament: {
		Name:       Tournament,
		Policy:     status.TournamentPolicy,
		Categories: []fees.Category{fees.CategoryEWallet, fees.CategoryVA},
		Mode:       poller.SingleShot,
		Interval:   poller.DefaultInterval,
	},
}

func Lookup(name string) (Profile, error) {
	const fn = "flow.Lookup"

	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("%s: %q: %w", fn, name, apperr.ErrUnknownFlow)
	}
	return p, nil
}

func Names() []string {
	out := make([]string, 0, len(profiles))
	for name := range profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WithInterval overrides the re-fetch delay. Non-positive values keep the current one.
func (p Profile) WithInterval(d time.Duration) Profile {
	if d > 0 {
		p.Interval = d
	}
	return p
}

func (p Profile) PollerConfig() poller.Config {
	return poller.Config{
		Mode:     p.Mode,
		Interval: p.Interval,
		Terminal: p.Policy.Terminal,
	}
}
