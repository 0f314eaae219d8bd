package monitor

import (
	"time"

	"go.uber.org/zap"

	"uplink-status-monitor/internal/channel"
	"uplink-status-monitor/internal/snapshot"
)

// Transition is a site whose channel differs from the previous cycle.
type Transition struct {
	Site string
	From channel.State
	To   channel.State
	At   time.Time
}

// transitions compares two consecutive record sets. Sites that appear or
// disappear are not transitions.
func transitions(prev, next []snapshot.Record, at time.Time) []Transition {
	if len(prev) == 0 {
		return nil
	}
	before := make(map[string]channel.State, len(prev))
	for _, r := range prev {
		before[r.Name] = r.Channel
	}

	var out []Transition
	for _, r := range next {
		from, ok := before[r.Name]
		if !ok || from == r.Channel {
			continue
		}
		out = append(out, Transition{Site: r.Name, From: from, To: r.Channel, At: at})
	}
	return out
}

func (e *Engine) logTransitions(ts []Transition) {
	for _, t := range ts {
		level := zap.InfoLevel
		if t.To != channel.Main {
			level = zap.WarnLevel
		}
		e.log.Log(level, "channel changed",
			zap.String("site", t.Site),
			zap.String("from", string(t.From)),
			zap.String("to", string(t.To)),
		)
	}
}
