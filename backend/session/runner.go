package session

import (
	"context"
	"sync"
	"time"

	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Backend is the server side of an attempt.
type Backend interface {
	SaveProgress(ctx context.Context, attemptID uuid.UUID, update models.ProgressUpdate) error
	Submit(ctx context.Context, attemptID uuid.UUID, answers []models.AnswerUpdate) (*models.SubmitResult, error)
}

// TickerFunc starts a ticker and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type Options struct {
	TickInterval time.Duration
	SaveInterval time.Duration
	// SettleDelay separates the expiry that triggers an automatic
	// submission from the submission itself.
	SettleDelay    time.Duration
	SubmitAttempts int
	RetryDelay     time.Duration
	NewTicker      TickerFunc
	Logger         *utils.Logger

	OnSubmitted    func(*models.SubmitResult)
	OnSubmitFailed func(error)
}

func (o *Options) withDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.SaveInterval <= 0 {
		o.SaveInterval = 30 * time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 100 * time.Millisecond
	}
	if o.SubmitAttempts <= 0 {
		o.SubmitAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.NewTicker == nil {
		o.NewTicker = realTicker
	}
	if o.Logger == nil {
		o.Logger = utils.NopLogger()
	}
}

// Runner owns one Session and keeps it in sync with the server. Saves are
// coalesced and sent in the background; they never hold up the ticker.
// Saves and the submission reach the backend one at a time, in order.
type Runner struct {
	backend Backend
	opts    Options
	log     *utils.Logger

	mu      sync.Mutex
	s       *Session
	pending *models.ProgressUpdate
	result  *models.SubmitResult

	io     sync.Mutex
	wake   chan struct{}
	expiry chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewRunner(s *Session, backend Backend, opts Options) *Runner {
	opts.withDefaults()
	return &Runner{
		backend: backend,
		opts:    opts,
		log:     opts.Logger.With("component", "session", "attempt_id", s.AttemptID()),
		s:       s,
		wake:    make(chan struct{}, 1),
		expiry:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Run drives the session until it is submitted or ctx ends. On ctx end the
// latest state is saved one last time.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		r.saveLoop(loopCtx)
		return nil
	})
	g.Go(func() error {
		defer stop()
		return r.loop(loopCtx)
	})
	err := g.Wait()

	select {
	case <-r.done:
		return nil
	default:
	}
	r.saveNow(context.WithoutCancel(ctx))
	return err
}

func (r *Runner) loop(ctx context.Context) error {
	ticks, stopTicks := r.opts.NewTicker(r.opts.TickInterval)
	defer stopTicks()
	saves, stopSaves := r.opts.NewTicker(r.opts.SaveInterval)
	defer stopSaves()

	r.mu.Lock()
	expired := r.s.Expired()
	r.mu.Unlock()
	var settle <-chan time.Time
	if expired {
		settle = time.After(r.opts.SettleDelay)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return nil
		case <-ticks:
			r.mu.Lock()
			tr := r.s.Tick()
			r.mu.Unlock()
			if tr.Persist {
				r.queueSave()
			}
			if tr.AutoSubmit && settle == nil {
				settle = time.After(r.opts.SettleDelay)
			}
		case <-r.expiry:
			if settle == nil {
				settle = time.After(r.opts.SettleDelay)
			}
		case <-saves:
			r.queueSave()
		case <-settle:
			settle = nil
			r.autoSubmit(ctx)
		}
	}
}

func (r *Runner) autoSubmit(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.opts.RetryDelay
	try := 0
	_, err := backoff.Retry(ctx, func() (*models.SubmitResult, error) {
		try++
		res, err := r.Submit(ctx)
		if err != nil && utils.KindOf(err) != utils.KindInternal {
			return nil, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(r.opts.SubmitAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.Warn("automatic submission failed", "try", try, "retry_in", next, "error", err)
		}),
	)
	if err == nil || ctx.Err() != nil {
		return
	}
	r.log.Error("automatic submission gave up", "error", err)
	if r.opts.OnSubmitFailed != nil {
		r.opts.OnSubmitFailed(err)
	}
}

// Submit sends the final answers. It may be called again after a failure;
// once it succeeds, later calls return the same result.
func (r *Runner) Submit(ctx context.Context) (*models.SubmitResult, error) {
	r.io.Lock()
	defer r.io.Unlock()

	r.mu.Lock()
	if r.result != nil {
		res := r.result
		r.mu.Unlock()
		return res, nil
	}
	answers := r.s.Answers()
	// the submission carries everything a queued save would
	r.pending = nil
	r.mu.Unlock()

	res, err := r.backend.Submit(ctx, r.s.AttemptID(), answers)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.s.Finish()
	r.result = res
	r.mu.Unlock()
	r.log.Info("attempt submitted", "total", res.Score.Total)
	if r.opts.OnSubmitted != nil {
		r.opts.OnSubmitted(res)
	}
	r.once.Do(func() { close(r.done) })
	return res, nil
}

// Done is closed once the attempt is submitted.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) Result() *models.SubmitResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Flush queues a save now. Call it when the page is hidden or about to
// unload.
func (r *Runner) Flush() { r.queueSave() }

func (r *Runner) queueSave() {
	r.mu.Lock()
	if r.s.Finished() {
		r.mu.Unlock()
		return
	}
	u := r.s.Progress()
	r.pending = &u
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// saveNow sends the current state synchronously.
func (r *Runner) saveNow(ctx context.Context) {
	r.mu.Lock()
	if r.s.Finished() {
		r.mu.Unlock()
		return
	}
	u := r.s.Progress()
	r.pending = &u
	r.mu.Unlock()
	r.flushNow(ctx)
}

func (r *Runner) saveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
			r.flushNow(ctx)
		}
	}
}

func (r *Runner) flushNow(ctx context.Context) {
	r.io.Lock()
	defer r.io.Unlock()

	r.mu.Lock()
	u := r.pending
	r.pending = nil
	finished := r.s.Finished()
	r.mu.Unlock()
	if u == nil || finished {
		return
	}
	if err := r.backend.SaveProgress(ctx, r.s.AttemptID(), *u); err != nil {
		// the next save carries the full state again
		r.log.Warn("progress save failed", "error", err)
	}
}

func (r *Runner) apply(tr Transition, err error) error {
	if err != nil {
		return err
	}
	if tr.Persist {
		r.queueSave()
	}
	if tr.AutoSubmit {
		select {
		case r.expiry <- struct{}{}:
		default:
		}
	}
	return nil
}

func (r *Runner) Navigate(i int) error {
	r.mu.Lock()
	tr, err := r.s.Navigate(i)
	r.mu.Unlock()
	return r.apply(tr, err)
}

func (r *Runner) Next() error {
	r.mu.Lock()
	tr, err := r.s.Next()
	r.mu.Unlock()
	return r.apply(tr, err)
}

func (r *Runner) Prev() error {
	r.mu.Lock()
	tr, err := r.s.Prev()
	r.mu.Unlock()
	return r.apply(tr, err)
}

func (r *Runner) Select(option string) error {
	r.mu.Lock()
	tr, err := r.s.Select(option)
	r.mu.Unlock()
	return r.apply(tr, err)
}

func (r *Runner) MarkForReview() error {
	r.mu.Lock()
	tr, err := r.s.MarkForReview()
	r.mu.Unlock()
	return r.apply(tr, err)
}

// State is a snapshot for rendering.
type State struct {
	Current   int
	Remaining int
	Expired   bool
	Finished  bool
	Questions []Question
	Locked    []bool
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := State{
		Current:   r.s.Current(),
		Remaining: r.s.Remaining(),
		Expired:   r.s.Expired(),
		Finished:  r.s.Finished(),
		Questions: make([]Question, r.s.Len()),
		Locked:    make([]bool, r.s.Len()),
	}
	for i := range st.Questions {
		st.Questions[i], _ = r.s.Question(i)
		st.Locked[i] = r.s.Locked(i)
	}
	return st
}
