package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/metrics"
	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Stats tracks editing context counters.
type Stats struct {
	Committed int64 `json:"committed"`
	Unchanged int64 `json:"unchanged"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// ErrEditorShutdown is returned when work is submitted to a shut-down editor.
var ErrEditorShutdown = errors.New("editor is shut down")

// DocumentStore is the persistence the editor reads from and commits to.
type DocumentStore interface {
	GetDocument(ctx context.Context, name string) (*store.DocumentRecord, error)
	PutDocument(ctx context.Context, doc *store.DocumentRecord) error
}

// EditFunc mutates a working copy of a document. Returning an error discards the copy.
type EditFunc func(ctx context.Context, doc *document.Document) error

type job struct {
	ctx    context.Context
	name   string
	fn     EditFunc
	commit bool
	result chan error
}

// Editor is the single privileged editing context. Every job runs on one
// goroutine, so no two edits of any document ever overlap.
type Editor struct {
	docs    DocumentStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	jobs   chan job
	done   chan struct{}
	exited chan struct{}
	mu     sync.Mutex
	closed bool

	stats Stats
}

// New starts an editor over docs.
func New(docs DocumentStore, logger *slog.Logger, m *metrics.Metrics) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Editor{
		docs:    docs,
		logger:  logger,
		metrics: m,
		jobs:    make(chan job),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go e.loop()
	return e
}

// Edit loads the named document, runs fn on a working copy and persists it
// when fn succeeds and marked it modified. It blocks until the job completes.
// ctx is honoured only while waiting to be scheduled; fn and the store calls
// receive a context that keeps ctx's values but is never cancelled.
func (e *Editor) Edit(ctx context.Context, name string, fn EditFunc) error {
	return e.submit(ctx, name, fn, true)
}

// View runs fn on a freshly loaded copy of the document and never persists it.
func (e *Editor) View(ctx context.Context, name string, fn EditFunc) error {
	return e.submit(ctx, name, fn, false)
}

func (e *Editor) submit(ctx context.Context, name string, fn EditFunc, commit bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorShutdown
	}
	e.mu.Unlock()

	j := job{ctx: ctx, name: name, fn: fn, commit: commit, result: make(chan error, 1)}
	select {
	case e.jobs <- j:
	case <-ctx.Done():
		return schema.NewError(schema.ErrCodeCancelled, "cancelled while waiting for the editing context").WithCause(ctx.Err())
	case <-e.done:
		return ErrEditorShutdown
	}
	return <-j.result
}

func (e *Editor) loop() {
	defer close(e.exited)
	for {
		select {
		case j := <-e.jobs:
			j.result <- e.run(j)
		case <-e.done:
			return
		}
	}
}

func (e *Editor) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&e.stats.Panics, 1)
			atomic.AddInt64(&e.stats.Failed, 1)
			e.metrics.EditorJob("panic")
			e.logger.Error("edit panicked", slog.String("document", j.name), slog.Any("panic", r))
			err = schema.NewErrorf(schema.ErrCodeExecution, "edit of %q panicked: %v", j.name, r)
		}
	}()

	// Once dequeued the job runs to completion; the caller's values survive.
	ctx := context.WithoutCancel(j.ctx)

	rec, err := e.docs.GetDocument(ctx, j.name)
	if err != nil {
		e.fail()
		return err
	}
	doc, err := document.Decode(rec.Body)
	if err != nil {
		e.fail()
		return err
	}

	if err := j.fn(ctx, doc); err != nil {
		e.fail()
		return err
	}
	if !j.commit || !doc.Modified() {
		atomic.AddInt64(&e.stats.Unchanged, 1)
		e.metrics.EditorJob("unchanged")
		return nil
	}

	body, err := doc.Encode()
	if err != nil {
		e.fail()
		return fmt.Errorf("encode document %q: %w", doc.Name, err)
	}
	rec.Body = body
	rec.Path = doc.Path
	rec.ParentClass = doc.ParentClass
	if err := e.docs.PutDocument(ctx, rec); err != nil {
		e.fail()
		return err
	}
	atomic.AddInt64(&e.stats.Committed, 1)
	e.metrics.EditorJob("committed")
	e.logger.Debug("document committed", slog.String("document", doc.Name), slog.Int64("revision", rec.Revision))
	return nil
}

func (e *Editor) fail() {
	atomic.AddInt64(&e.stats.Failed, 1)
	e.metrics.EditorJob("failed")
}

// Shutdown stops accepting jobs and waits for the running one to finish.
func (e *Editor) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.done)
	e.mu.Unlock()
	<-e.exited
}

// Stats returns a snapshot of the editor counters.
func (e *Editor) Stats() Stats {
	return Stats{
		Committed: atomic.LoadInt64(&e.stats.Committed),
		Unchanged: atomic.LoadInt64(&e.stats.Unchanged),
		Failed:    atomic.LoadInt64(&e.stats.Failed),
		Panics:    atomic.LoadInt64(&e.stats.Panics),
	}
}
