package observer

import (
	"github.com/golang/glog"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/testport/harness"
)

// LogHook logs decoded commands the way a simulator console would.
type LogHook struct{}

// Func implements sim.Hook.
func (LogHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosCommand {
		return
	}

	e, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	switch e.Command {
	case harness.StartRun:
		glog.Infof("Test start: %q", e.Label)
	case harness.EndRun:
		glog.Info("Test finished")
	case harness.StartSubtest:
		glog.Infof("Test: %q", e.Label)
	case harness.SubtestPass:
		glog.Infof("SUCCESS: %q", e.Label)
	case harness.SubtestFail:
		glog.Errorf("FAIL: %q", e.Label)
	}
}

// EventCollector is a hook that keeps every decoded event and violation.
type EventCollector struct {
	Events     []Event
	Violations []string
}

// Func implements sim.Hook.
func (c *EventCollector) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosCommand:
		c.Events = append(c.Events, ctx.Item.(Event))
	case HookPosViolation:
		c.Violations = append(c.Violations, ctx.Item.(string))
	}
}
