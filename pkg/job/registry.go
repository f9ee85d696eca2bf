package job

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("job not found")

// Registry is the in-memory source of truth for job lookups. It is
// constructed once at startup and passed to whoever needs it; jobs live
// for the lifetime of the process.
type Registry struct {
	mtx  sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
	}
}

// Create allocates a new pending job. IDs are random, so concurrent
// creations never collide.
func (r *Registry) Create(url string) *Job {
	j := newJob(uuid.NewString(), url)

	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.jobs[j.ID()] = j

	return j
}

func (r *Registry) Get(id string) (*Job, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	return j, nil
}

func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.jobs)
}
