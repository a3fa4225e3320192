package doctor

import (
	"context"
	"time"

	"github.com/hay-kot/huddle/internal/notify"
)

const relayProbeTimeout = 3 * time.Second

// probeSession is a session ID no real session uses.
const probeSession = "_doctor"

// RelayCheck dials the notification relay.
type RelayCheck struct {
	dialer notify.Dialer
	url    string
}

// NewRelayCheck creates a relay check. A nil dialer means push updates are
// disabled.
func NewRelayCheck(dialer notify.Dialer, url string) *RelayCheck {
	return &RelayCheck{dialer: dialer, url: url}
}

func (c *RelayCheck) Name() string {
	return "Relay"
}

func (c *RelayCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.dialer == nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Push updates",
			Status: StatusWarn,
			Detail: "relay.url is empty; views refresh only on demand",
		})
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, relayProbeTimeout)
	defer cancel()

	ch, err := c.dialer.Dial(ctx, probeSession)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  c.url,
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}
	_ = ch.Close()

	result.Items = append(result.Items, CheckItem{
		Label:  c.url,
		Status: StatusPass,
		Detail: "reachable",
	})
	return result
}
