package pagination

import (
	"context"
	"errors"
	"iter"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the position of an Iterator in its lifecycle.
type State int

const (
	// StateFetching means the next call to Next requests a page.
	StateFetching State = iota

	// StateEmitting means Page holds a page the consumer has not moved past.
	StateEmitting

	// StateThrottling means Next is waiting out Config.Throttle.
	StateThrottling

	// StateTerminated means the upstream returned an empty page. Terminal.
	StateTerminated

	// StateFailed means Err holds the error that ended the run. Terminal.
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateEmitting:
		return "emitting"
	case StateThrottling:
		return "throttling"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats counts what an Iterator has emitted so far.
type Stats struct {
	Pages   int
	Records int
}

// Iterator is a pull-driven sequence of pages. It is not safe for
// concurrent use and cannot be restarted.
type Iterator struct {
	p      *Paginator
	ctx    context.Context
	req    PageRequest
	logger zerolog.Logger
	runID  string

	state State
	page  Page
	err   error
	stats Stats
}

// Paginate returns an iterator over the pages starting at startCursor.
// No request is made until the first call to Next.
func (p *Paginator) Paginate(ctx context.Context, baseURL string, startCursor uint64) *Iterator {
	runID := uuid.NewString()
	logger := p.logger.With().Str("run_id", runID).Logger()

	logger.Info().
		Str("base_url", baseURL).
		Uint64("cursor", startCursor).
		Msg("Starting pagination")

	return &Iterator{
		p:      p,
		ctx:    ctx,
		req:    PageRequest{BaseURL: baseURL, Cursor: startCursor},
		logger: logger,
		runID:  runID,
		state:  StateFetching,
	}
}

// Pages returns the pages starting at startCursor as a range-over-func
// sequence. A failure is yielded once as (nil, err) and ends the sequence.
func (p *Paginator) Pages(ctx context.Context, baseURL string, startCursor uint64) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		it := p.Paginate(ctx, baseURL, startCursor)
		defer it.Close()

		for it.Next() {
			if !yield(it.Page(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Next advances to the next page. It returns false once the upstream sends
// an empty page, or when a fetch or wait fails; Err tells the two apart.
//
// When the previous call emitted a page, Next first sleeps Config.Throttle
// and moves the cursor to that page's last tid.
func (it *Iterator) Next() bool {
	switch it.state {
	case StateTerminated, StateFailed:
		return false
	case StateEmitting:
		it.state = StateThrottling
		it.logger.Debug().Dur("throttle", it.p.config.Throttle).Msg("Throttling before next page")
		if err := it.p.sleeper.Sleep(it.ctx, it.p.config.Throttle); err != nil {
			it.fail(cancelled(err))
			return false
		}
		it.req.Cursor = it.page.LastTID()
		it.page = nil
		it.state = StateFetching
	}

	currentCursor.Set(float64(it.req.Cursor))

	page, err := it.p.fetchPageWithRetry(it.ctx, it.req, it.logger)
	if err != nil {
		it.fail(err)
		return false
	}

	if len(page) == 0 {
		it.terminate("empty page")
		return false
	}

	// tid 0 cannot be requested without restarting from the beginning
	if page.LastTID() == 0 {
		last := page[len(page)-1]
		it.logger.Warn().
			Uint64("cursor", it.req.Cursor).
			Int("records", len(page)).
			Bool("has_tid", last.HasTID).
			Msg("Last record has no usable tid, page dropped")
		it.terminate("tid sentinel")
		return false
	}

	it.page = page
	it.state = StateEmitting
	it.stats.Pages++
	it.stats.Records += len(page)
	pagesTotal.Inc()
	recordsTotal.Add(float64(len(page)))

	it.logger.Debug().
		Uint64("cursor", it.req.Cursor).
		Uint64("last_tid", page.LastTID()).
		Int("records", len(page)).
		Msg("Page fetched")

	return true
}

// Page returns the page produced by the last successful call to Next.
func (it *Iterator) Page() Page {
	if it.state != StateEmitting {
		return nil
	}
	return it.page
}

// Cursor returns the tid used for the current or next request.
func (it *Iterator) Cursor() uint64 {
	return it.req.Cursor
}

// Err returns the error that ended the iteration, or nil if it ended on an
// empty page or has not ended.
func (it *Iterator) Err() error {
	return it.err
}

// State returns the current lifecycle state.
func (it *Iterator) State() State {
	return it.state
}

// Stats returns the number of pages and records emitted so far.
func (it *Iterator) Stats() Stats {
	return it.stats
}

// RunID returns the identifier attached to this iterator's log lines.
func (it *Iterator) RunID() string {
	return it.runID
}

// Close ends the iteration early. Later calls to Next return false.
func (it *Iterator) Close() {
	if it.state == StateTerminated || it.state == StateFailed {
		return
	}
	it.terminate("closed by consumer")
}

func (it *Iterator) terminate(reason string) {
	it.state = StateTerminated
	it.page = nil
	runsTotal.WithLabelValues("terminated").Inc()

	it.logger.Info().
		Str("reason", reason).
		Uint64("cursor", it.req.Cursor).
		Int("pages", it.stats.Pages).
		Int("records", it.stats.Records).
		Msg("Pagination finished")
}

func (it *Iterator) fail(err error) {
	it.state = StateFailed
	it.page = nil
	it.err = err

	outcome := "failed"
	if errors.Is(err, ErrContextCancelled) {
		outcome = "cancelled"
	}
	runsTotal.WithLabelValues(outcome).Inc()

	it.logger.Error().
		Err(err).
		Uint64("cursor", it.req.Cursor).
		Int("pages", it.stats.Pages).
		Int("records", it.stats.Records).
		Msg("Pagination failed")
}
