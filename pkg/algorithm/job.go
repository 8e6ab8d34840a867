package algorithm

import (
	"sync"

	"github.com/osstelecom/topoweak/pkg/graph"
)

// Job asks whether Source has at least Limit independent routes to Target.
// Jobs are values: once queued they are never changed and each is consumed
// by exactly one worker.
type Job struct {
	Source   *graph.Node
	Target   *graph.Node
	Limit    int
	UseCache bool
}

// Queue is a finite FIFO of jobs safe for concurrent producers and consumers.
type Queue struct {
	mu   sync.Mutex
	jobs []Job
	head int
}

// NewQueue creates a queue holding jobs.
func NewQueue(jobs ...Job) *Queue {
	q := &Queue{}
	q.Push(jobs...)
	return q
}

// Push appends jobs.
func (q *Queue) Push(jobs ...Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, jobs...)
}

// Pop removes and returns the oldest job.
func (q *Queue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.jobs) {
		return Job{}, false
	}
	j := q.jobs[q.head]
	q.jobs[q.head] = Job{}
	q.head++
	if q.head == len(q.jobs) {
		q.jobs = q.jobs[:0]
		q.head = 0
	}
	return j, true
}

// Len returns the number of jobs not yet popped.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) - q.head
}
