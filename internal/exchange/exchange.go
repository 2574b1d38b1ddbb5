// Package exchange wraps the single-writer core with the ordered command
// gateway: callers submit commands and queries concurrently and get back
// one-shot result handles, while one pipeline goroutine assigns sequence
// numbers and applies items strictly in acceptance order. Events are handed
// off to a bounded channel drained by a dedicated publisher goroutine, so a
// slow consumer applies backpressure instead of losing events.
package exchange

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"gungnir/internal/common"
	"gungnir/internal/engine"
)

const (
	defaultCommandBuffer = 1024
	defaultEventBuffer   = 4096
)

var ErrShutdown = errors.New("exchange is shut down")

// Result resolves a submitted command: the sequence position it was applied
// at and its terminal result code.
type Result struct {
	Seq  uint64
	Code common.ResultCode
}

// QueryResult resolves a report query. Value is one of the engine's typed
// report results.
type QueryResult struct {
	Seq   uint64
	Value any
}

// Journal persists the accepted command stream before application. The
// exchange treats append failures as fatal: a command that cannot be
// journalled is never applied.
type Journal interface {
	Append(seq uint64, cmd common.Command) error
	Close() error
}

type item struct {
	cmd   common.Command
	query engine.Query
	res   chan Result
	qres  chan QueryResult
}

type Option func(*Exchange)

func WithCommandBuffer(n int) Option {
	return func(e *Exchange) { e.in = make(chan item, n) }
}

func WithEventBuffer(n int) Option {
	return func(e *Exchange) { e.events = make(chan common.Event, n) }
}

func WithJournal(j Journal) Option {
	return func(e *Exchange) { e.journal = j }
}

type Exchange struct {
	t       *tomb.Tomb
	core    *engine.Core
	handler common.Handler
	journal Journal

	in     chan item
	events chan common.Event
	seq    uint64

	mu     sync.RWMutex
	closed bool
}

// New builds and starts an exchange. The handler receives every event the
// pipeline produces, in order, from a single goroutine.
func New(handler common.Handler, opts ...Option) *Exchange {
	e := &Exchange{
		t:       new(tomb.Tomb),
		core:    engine.New(),
		handler: handler,
		in:      make(chan item, defaultCommandBuffer),
		events:  make(chan common.Event, defaultEventBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.t.Go(e.pipeline)
	e.t.Go(e.publish)
	return e
}

// enqueue hands one item to the pipeline. The closed flag is read under a
// lock held across the send, so once Close has taken the write lock no item
// can enter the channel anymore; everything enqueued earlier is resolved by
// the pipeline or by a later drain. That ordering is what makes every
// accepted handle resolve exactly once.
func (e *Exchange) enqueue(it item) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrShutdown
	}
	select {
	case e.in <- it:
		return nil
	case <-e.t.Dying():
		return ErrShutdown
	}
}

// Submit hands a command to the sequencer and returns a handle that resolves
// exactly once with the command's result. Blocks only while the command
// buffer is full.
func (e *Exchange) Submit(cmd common.Command) (<-chan Result, error) {
	it := item{cmd: cmd, res: make(chan Result, 1)}
	if err := e.enqueue(it); err != nil {
		return nil, err
	}
	return it.res, nil
}

// SubmitWait submits and blocks until the command resolves.
func (e *Exchange) SubmitWait(cmd common.Command) (Result, error) {
	h, err := e.Submit(cmd)
	if err != nil {
		return Result{}, err
	}
	return <-h, nil
}

// Query places a read-only report query into the same total order as
// commands, so its result is consistent with a specific sequence position.
func (e *Exchange) Query(q engine.Query) (<-chan QueryResult, error) {
	it := item{query: q, qres: make(chan QueryResult, 1)}
	if err := e.enqueue(it); err != nil {
		return nil, err
	}
	return it.qres, nil
}

// QueryWait queries and blocks until the report resolves.
func (e *Exchange) QueryWait(q engine.Query) (QueryResult, error) {
	h, err := e.Query(q)
	if err != nil {
		return QueryResult{}, err
	}
	return <-h, nil
}

// Close stops accepting new work, waits for both goroutines to finish and
// resolves anything still queued with the shutdown result.
func (e *Exchange) Close() error {
	// Taking the write lock waits out every in-flight enqueue and turns all
	// later ones away, so after this point the input channel only shrinks.
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.t.Kill(nil)
	err := e.t.Wait()
	e.drain()
	if e.journal != nil {
		if cerr := e.journal.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// pipeline is the single logical writer: it owns all core state and applies
// one item at a time, to completion, in acceptance order. It is the only
// sender on the event channel; closing the channel on exit is what lets the
// publisher drain every handed-off event before stopping.
func (e *Exchange) pipeline() error {
	defer close(e.events)
	defer e.drain()
	for {
		select {
		case it := <-e.in:
			if err := e.apply(it); err != nil {
				log.Error().Err(err).Uint64("seq", e.seq).
					Msg("invariant violation, halting pipeline")
				return err
			}
		case <-e.t.Dying():
			return nil
		}
	}
}

func (e *Exchange) apply(it item) error {
	e.seq++

	if it.query != nil {
		value := e.core.Execute(it.query)
		// Depth queries double as market-data publications.
		if dr, ok := value.(engine.DepthResult); ok && dr.Result.Ok() {
			snap := dr.Snapshot
			e.emit(common.Event{Kind: common.EventBookSnapshot, Seq: e.seq, Snapshot: &snap})
		}
		it.qres <- QueryResult{Seq: e.seq, Value: value}
		return nil
	}

	if e.journal != nil {
		if err := e.journal.Append(e.seq, it.cmd); err != nil {
			it.res <- Result{Seq: e.seq, Code: common.ResultShutdown}
			return fmt.Errorf("journal append: %w", err)
		}
	}

	events, err := e.core.Apply(e.seq, it.cmd)
	for _, ev := range events {
		e.emit(ev)
	}
	if err != nil {
		it.res <- Result{Seq: e.seq, Code: common.ResultShutdown}
		return err
	}
	it.res <- Result{Seq: e.seq, Code: resultOf(events)}
	return nil
}

// emit hands an event to the publisher with bounded blocking: the pipeline
// waits when the buffer is full rather than dropping financial events. A
// shutdown never interrupts the send; the item currently being applied gets
// all of its events out before the pipeline exits.
func (e *Exchange) emit(ev common.Event) {
	e.events <- ev
}

func (e *Exchange) publish() error {
	for ev := range e.events {
		e.handler.HandleEvent(ev)
	}
	return nil
}

// drain resolves queued, never-applied items so no caller blocks forever.
func (e *Exchange) drain() {
	for {
		select {
		case it := <-e.in:
			if it.res != nil {
				it.res <- Result{Code: common.ResultShutdown}
			}
			if it.qres != nil {
				it.qres <- QueryResult{}
			}
		default:
			return
		}
	}
}

func resultOf(events []common.Event) common.ResultCode {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == common.EventCommandResult {
			return events[i].Result.Result
		}
	}
	return common.ResultShutdown
}
