package compose

import "github.com/yacobolo/csstokens/internal/transform"

// OptimizationStage is the name of the optimization phase in the
// transform order. It always runs last.
const OptimizationStage = "optimization"

// Registry is the ordered list of stages a Composer runs.
type Registry struct {
	stages []transform.Stage
}

// NewRegistry returns a registry running stages in the given order, or
// transform.Pipeline() when none are given.
func NewRegistry(stages ...transform.Stage) *Registry {
	if len(stages) == 0 {
		stages = transform.Pipeline()
	}
	return &Registry{stages: stages}
}

// Stages returns the registered stages in order.
func (r *Registry) Stages() []transform.Stage {
	return r.stages
}

// Order returns the names of the stages, followed by the optimization
// phase.
func (r *Registry) Order() []string {
	out := make([]string, 0, len(r.stages)+1)
	for _, s := range r.stages {
		out = append(out, s.Name())
	}
	return append(out, OptimizationStage)
}

// runs reports whether stage is enabled by opts. Stages without an option
// flag always run.
func runs(stage transform.Stage, opts Options) bool {
	on, known := opts.enabled(stage.Name())
	return on || !known
}
