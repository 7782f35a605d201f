// Package optimize runs structural optimizations over composed CSS. Every
// step is validated before it is accepted, and the whole phase is rolled
// back when the final result fails the integrity checks.
package optimize

import (
	"fmt"
	"time"

	"go.trai.ch/zerr"
	"go.uber.org/zap"

	"github.com/yacobolo/csstokens/internal/cssparse"
)

// State is a position in the optimization state machine.
type State string

// Optimization states. FinalValidated and RolledBack are terminal.
const (
	StateComposed       State = "composed"
	StateProposed       State = "proposed"
	StateValidated      State = "validated"
	StateRejected       State = "rejected"
	StateFinalValidated State = "final_validated"
	StateRolledBack     State = "rolled_back"
)

// RollbackStep names the record added when the phase is rolled back.
const RollbackStep = "pipeline_rollback"

// Record is the outcome of one step, or of the rollback.
type Record struct {
	Step        string        `json:"step"`
	State       State         `json:"state"`
	Reason      string        `json:"reason,omitempty"`
	BytesBefore int           `json:"bytesBefore"`
	BytesAfter  int           `json:"bytesAfter"`
	Duration    time.Duration `json:"duration"`
}

// Report is the result of one optimization run.
type Report struct {
	// CSS is the optimized CSS, or the input when rolled back.
	CSS     string         `json:"-"`
	State   State          `json:"state"`
	Records []Record       `json:"optimizations"`
	Before  cssparse.Stats `json:"before"`
	After   cssparse.Stats `json:"after"`
	// Reason explains a rollback.
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RolledBack reports whether the optimized CSS was discarded.
func (r *Report) RolledBack() bool {
	return r.State == StateRolledBack
}

// Applied returns the names of the accepted steps, in order.
func (r *Report) Applied() []string {
	var out []string
	for _, rec := range r.Records {
		if rec.State == StateValidated {
			out = append(out, rec.Step)
		}
	}
	return out
}

// BytesSaved returns how much shorter the output is than the input.
func (r *Report) BytesSaved(input string) int {
	return len(input) - len(r.CSS)
}

// Optimizer runs a fixed sequence of steps.
type Optimizer struct {
	steps []Step
	log   *zap.Logger
}

// New returns an optimizer running steps, or DefaultSteps when none are
// given.
func New(log *zap.Logger, steps ...Step) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	if len(steps) == 0 {
		steps = DefaultSteps()
	}
	return &Optimizer{steps: steps, log: log.Named("optimize")}
}

// Steps returns the configured steps.
func (o *Optimizer) Steps() []Step {
	return o.steps
}

// Optimize runs every step over src. A step that fails, panics or does not
// pass validation is skipped and the next step continues from the previous
// CSS. If the final result fails validation against src, src is returned
// unchanged with a rollback record.
func (o *Optimizer) Optimize(src string) *Report {
	start := time.Now()
	rep := &Report{State: StateComposed, Before: cssparse.Analyze(src)}

	current := src
	for _, step := range o.steps {
		stepStart := time.Now()
		rec := Record{Step: step.Name, State: StateProposed, BytesBefore: len(current), BytesAfter: len(current)}

		proposed, err := o.apply(step, current)
		if err == nil {
			err = ValidateStep(current, proposed)
		}
		if err != nil {
			rec.State = StateRejected
			rec.Reason = err.Error()
			o.log.Debug("optimization rejected", zap.String("step", step.Name), zap.Error(err))
		} else {
			rec.State = StateValidated
			rec.BytesAfter = len(proposed)
			current = proposed
		}
		rec.Duration = time.Since(stepStart)
		rep.Records = append(rep.Records, rec)
	}

	if err := ValidateFinal(src, current); err != nil {
		o.log.Warn("optimization rolled back", zap.Error(err))
		rep.CSS = src
		rep.State = StateRolledBack
		rep.Reason = err.Error()
		rep.After = rep.Before
		rep.Records = append(rep.Records, Record{
			Step:        RollbackStep,
			State:       StateRolledBack,
			Reason:      err.Error(),
			BytesBefore: len(current),
			BytesAfter:  len(src),
		})
		rep.Duration = time.Since(start)
		return rep
	}

	rep.CSS = current
	rep.State = StateFinalValidated
	rep.After = cssparse.Analyze(current)
	rep.Duration = time.Since(start)
	return rep
}

func (o *Optimizer) apply(step Step, src string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zerr.With(zerr.Wrap(ErrStepPanicked, fmt.Sprint(r)), "step", step.Name)
		}
	}()
	if step.Apply == nil {
		return src, nil
	}
	return step.Apply(src)
}
