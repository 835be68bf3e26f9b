package cron

import "context"

// Job is one background sweep owned by the cron worker. Run must be safe to
// call repeatedly; the scheduler retries on the next tick after a failure.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the sweeps the worker executes each tick, in registration
// order.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from the given jobs, ignoring nils.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends a job to the run order.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs so callers cannot reorder the
// schedule.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
