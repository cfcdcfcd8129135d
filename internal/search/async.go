package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/recipe"
)

var (
	// ErrShuttingDown is returned by every call once the worker has stopped.
	ErrShuttingDown = errors.New(errors.ErrCodeShuttingDown, "index is shutting down", nil)

	// ErrProtocol matches responses of the wrong variant.
	ErrProtocol = errors.New(errors.ErrCodeProtocolViolation, "index protocol violation", nil)
)

// Options configures the AsyncIndex.
type Options struct {
	// RequestTimeout bounds how long a call waits for the worker to accept
	// its request. Once accepted, a request runs to completion. Zero waits
	// as long as the caller's context allows.
	RequestTimeout time.Duration

	Metrics *Metrics
}

// AsyncIndex funnels concurrent callers to the single index worker.
//
// Requests and responses travel over two unbuffered channels. A caller takes
// the turn token, hands its request to the worker, waits for the response
// and gives the token back, so at most one request is in flight and every
// caller receives the answer to its own request.
type AsyncIndex struct {
	requests  chan Request
	responses chan Response
	turn      chan struct{}

	stop chan struct{}
	done chan struct{}

	closeOnce sync.Once
	closeErr  error

	handler worker
	cancel  context.CancelFunc

	timeout time.Duration
	metrics *Metrics
}

// worker is what the AsyncIndex drives. *Indexer is the only production
// implementation.
type worker interface {
	Handle(context.Context, Request) Response
	Close() error
}

// Start launches the worker goroutine that owns ix. ix must not be used
// directly afterwards.
func Start(ix *Indexer, opts Options) *AsyncIndex {
	return start(ix, opts)
}

func start(w worker, opts Options) *AsyncIndex {
	ctx, cancel := context.WithCancel(context.Background())
	a := &AsyncIndex{
		requests:  make(chan Request),
		responses: make(chan Response),
		turn:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		handler:   w,
		cancel:    cancel,
		timeout:   opts.RequestTimeout,
		metrics:   opts.Metrics,
	}
	go a.run(ctx)
	return a
}

// run is the worker loop. Each request is handled to completion and its
// response delivered before the next request is received.
func (a *AsyncIndex) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			return
		case req := <-a.requests:
			began := time.Now()
			resp := a.handler.Handle(ctx, req)
			outcome := "ok"
			if resp.Err != nil {
				outcome = "error"
			}
			a.metrics.observeRequest(req.Kind, outcome, time.Since(began))
			// The caller holds the turn and waits until done is closed,
			// which cannot happen before this send.
			a.responses <- resp
		}
	}
}

// Close stops the worker after any in-flight request and releases the
// index. Calls made after Close fail with ErrShuttingDown.
func (a *AsyncIndex) Close() error {
	a.closeOnce.Do(func() {
		close(a.stop)
		a.cancel()
		<-a.done
		a.closeErr = a.handler.Close()
		slog.Debug("index_worker_stopped")
	})
	return a.closeErr
}

// Done is closed when the worker has exited.
func (a *AsyncIndex) Done() <-chan struct{} {
	return a.done
}

func (a *AsyncIndex) call(ctx context.Context, req Request) (Response, error) {
	began := time.Now()
	waitCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	select {
	case a.turn <- struct{}{}:
	case <-a.done:
		a.metrics.observeRequest(req.Kind, "shutting_down", 0)
		return Response{}, ErrShuttingDown
	case <-waitCtx.Done():
		return Response{}, a.timedOut(req, waitCtx.Err())
	}
	defer func() { <-a.turn }()

	select {
	case a.requests <- req:
	case <-a.done:
		a.metrics.observeRequest(req.Kind, "shutting_down", 0)
		return Response{}, ErrShuttingDown
	case <-waitCtx.Done():
		return Response{}, a.timedOut(req, waitCtx.Err())
	}
	a.metrics.observeWait(time.Since(began))

	// Handed off: the request cannot be withdrawn any more.
	var resp Response
	select {
	case resp = <-a.responses:
	case <-a.done:
		return Response{}, ErrShuttingDown
	}

	if want := req.Kind.Expects(); resp.Kind != want {
		a.metrics.observeRequest(req.Kind, "protocol", 0)
		return Response{}, errors.New(errors.ErrCodeProtocolViolation,
			fmt.Sprintf("%s answered with %s, want %s", req.Kind, resp.Kind, want), resp.Err)
	}
	return resp, resp.Err
}

func (a *AsyncIndex) timedOut(req Request, cause error) error {
	a.metrics.observeRequest(req.Kind, "timeout", 0)
	return errors.New(errors.ErrCodeIndexTimeout,
		fmt.Sprintf("%s: index busy", req.Kind), cause)
}

// ReindexAll reindexes every recipe under the recipe directory.
func (a *AsyncIndex) ReindexAll(ctx context.Context) error {
	_, err := a.call(ctx, Request{Kind: RequestReindexAll})
	return err
}

// ReindexSome reindexes the given recipe files. Files that cannot be read
// are skipped.
func (a *AsyncIndex) ReindexSome(ctx context.Context, paths []string) error {
	_, err := a.call(ctx, Request{Kind: RequestReindexSome, Paths: paths})
	return err
}

// Remove drops the given recipe files from the index. Paths that were never
// indexed are ignored.
func (a *AsyncIndex) Remove(ctx context.Context, paths []string) error {
	_, err := a.call(ctx, Request{Kind: RequestRemove, Paths: paths})
	return err
}

// Search returns size recipes matching query, starting at start, with facet
// counts over all matches. start and size must fit in a uint32.
func (a *AsyncIndex) Search(ctx context.Context, query string, start, size int) (Result, error) {
	if start < 0 || size < 0 || uint64(start) > math.MaxUint32 || uint64(size) > math.MaxUint32 {
		return Result{}, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("invalid page: start=%d size=%d", start, size), nil)
	}
	resp, err := a.call(ctx, Request{Kind: RequestSearch, Query: query, Start: start, Size: size})
	if err != nil {
		return Result{}, err
	}
	return resp.Result, nil
}

// Recipe looks a recipe up by slug. The boolean is false when no recipe
// has that slug.
func (a *AsyncIndex) Recipe(ctx context.Context, slug string) (recipe.Recipe, bool, error) {
	res, err := a.Search(ctx, fmt.Sprintf("slug:%q", slug), 0, 1)
	if err != nil {
		return recipe.Recipe{}, false, err
	}
	if len(res.Documents) == 0 {
		return recipe.Recipe{}, false, nil
	}
	return res.Documents[0], true, nil
}
