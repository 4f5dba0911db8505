package monitor

import (
	"fmt"
	"sort"

	"github.com/patruff/moltapp-sub001/internal/engine"
	"github.com/patruff/moltapp-sub001/internal/events"
)

const (
	LevelWarn     = "warn"
	LevelCritical = "critical"
)

// RuleEvaluator compares two engine snapshots and reports what degraded
// in between.
type RuleEvaluator struct{}

func (RuleEvaluator) Check(prev, cur engine.Metrics) []events.Alert {
	var alerts []events.Alert
	grew := func(name string, before, after uint64) {
		if after > before {
			alerts = append(alerts, events.Alert{
				Level:   LevelWarn,
				Message: fmt.Sprintf("%d new %s", after-before, name),
			})
		}
	}
	grew("evaluation faults", prev.EvalFaults, cur.EvalFaults)
	grew("emit failures", prev.EmitFailures, cur.EmitFailures)
	grew("audit failures", prev.AuditFailures, cur.AuditFailures)
	grew("persist failures", prev.PersistFailures, cur.PersistFailures)
	grew("dropped ticks", prev.TicksDropped, cur.TicksDropped)

	if prev.Subscribed && !cur.Subscribed {
		alerts = append(alerts, events.Alert{Level: LevelCritical, Message: "evaluation loop unsubscribed from price feed"})
	}
	return alerts
}

// StaleAlert reports symbols with live orders whose last price is older
// than the watchdog allows.
func StaleAlert(stale []string, live map[string]bool) (events.Alert, bool) {
	var hit []string
	for _, sym := range stale {
		if live[sym] {
			hit = append(hit, sym)
		}
	}
	if len(hit) == 0 {
		return events.Alert{}, false
	}
	sort.Strings(hit)
	return events.Alert{Level: LevelWarn, Message: fmt.Sprintf("stale prices for %v", hit)}, true
}
