// Package uiqueue serializes work onto a single UI writer.
//
// A Queue accepts tasks from any goroutine and hands them, in submission
// order, to an Executor from one pump goroutine. Access never blocks the
// caller, so it is safe to call from inside a bubbletea Update.
package uiqueue

import (
	"errors"
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrClosed is returned by Access after Close.
var ErrClosed = errors.New("ui queue closed")

// Executor runs one task on the UI writer. It is called from the pump
// goroutine and may block until the UI accepts the task.
type Executor func(task func())

// Inline runs each task directly on the pump goroutine.
func Inline(task func()) { task() }

// TaskMsg carries a queued task into a bubbletea program. The model's
// Update must call Run when it receives one.
type TaskMsg struct{ fn func() }

// Task wraps fn as a TaskMsg.
func Task(fn func()) TaskMsg { return TaskMsg{fn: fn} }

// Run executes the task.
func (m TaskMsg) Run() {
	if m.fn != nil {
		m.fn()
	}
}

// ProgramExecutor delivers tasks to a bubbletea program as TaskMsg values.
// A program that has exited drops whatever it is sent, so Finish must be
// called once Run returns: it runs the dropped tasks and every later task
// inline, in queue order.
type ProgramExecutor struct {
	p *tea.Program

	mu       sync.Mutex
	pending  map[uint64]func()
	next     uint64
	finished bool

	// held while tasks run off the program, keeping them in order
	inline sync.Mutex
}

// NewProgramExecutor creates an executor for p.
func NewProgramExecutor(p *tea.Program) *ProgramExecutor {
	return &ProgramExecutor{p: p, pending: make(map[uint64]func())}
}

// Execute is the Executor to pass to New.
func (e *ProgramExecutor) Execute(task func()) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		e.inline.Lock()
		defer e.inline.Unlock()
		task()
		return
	}
	id := e.next
	e.next++
	e.pending[id] = task
	e.mu.Unlock()

	e.p.Send(Task(func() {
		if e.claim(id) {
			task()
		}
	}))
}

func (e *ProgramExecutor) claim(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[id]
	delete(e.pending, id)
	return ok
}

// Finish runs the tasks the program never ran and switches to running
// tasks inline. Call it after the program's Run has returned.
func (e *ProgramExecutor) Finish() {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	e.finished = true
	ids := make([]uint64, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	tasks := make([]func(), len(ids))
	for i, id := range ids {
		tasks[i] = e.pending[id]
	}
	e.pending = make(map[uint64]func())
	e.inline.Lock()
	e.mu.Unlock()

	defer e.inline.Unlock()
	for _, task := range tasks {
		task()
	}
}

// Queue is an unbounded FIFO of UI tasks drained by one goroutine.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	exec   Executor
	done   chan struct{}
}

// New starts a queue that runs tasks through exec. A nil exec means Inline.
func New(exec Executor) *Queue {
	if exec == nil {
		exec = Inline
	}
	q := &Queue{exec: exec, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.pump()
	return q
}

// Access schedules task. Tasks run one at a time in the order they were
// accepted.
func (q *Queue) Access(task func()) error {
	if task == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return nil
}

// Sync blocks until every task accepted before the call has been handed to
// the executor and, for Inline, has run. It returns ErrClosed if the queue
// is already closed.
func (q *Queue) Sync() error {
	marker := make(chan struct{})
	if err := q.Access(func() { close(marker) }); err != nil {
		return err
	}
	select {
	case <-marker:
	case <-q.done:
	}
	return nil
}

// Close stops accepting tasks. Tasks already queued still run. Close
// waits for the pump to finish, so it must not be called from a task.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) pump() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.exec(task)
	}
}
