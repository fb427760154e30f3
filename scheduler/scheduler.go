// Package scheduler executes a resolved credential dependency graph:
// it walks the DAG in dependency order, passes credentials between
// vertices through single-shot cells, and drives one network round
// trip per vertex through a caller-supplied RequestHandler.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-errors/errors"
	wabisabi "github.com/nothingmuch/wabisabi"
	"github.com/nothingmuch/wabisabi/graph"
	"github.com/sirupsen/logrus"
)

// Logger is shared with the root package.
var Logger = logrus.StandardLogger()

// ErrEdgeNotFulfilled is returned when a vertex's in-edges never
// became ready, usually because the round was cancelled.
var ErrEdgeNotFulfilled = errors.Errorf("edge not fulfilled")

// Typed groups per-credential-type values.
type Typed[T any] [graph.NumTypes][]T

// Issued is one request's yield: k real credentials per type plus the
// zero credentials of the attached null request.
type Issued struct {
	Real Typed[*wabisabi.Credential]
	Zero Typed[*wabisabi.Credential]
}

// RequestHandler is the boundary to the coordinator. Implementations
// own the network; the scheduler owns the ordering. Every method must
// honor the context.
type RequestHandler interface {
	// RegisterInput bootstraps an input vertex: it yields k zero
	// credentials per type and no real ones.
	RegisterInput(ctx context.Context, vertex graph.VertexID) (Issued, error)

	// ConfirmConnection presents the bootstrap credentials and
	// converts the input's value into real credentials.
	ConfirmConnection(ctx context.Context, vertex graph.VertexID, present Typed[*wabisabi.Credential], request Typed[uint64]) (Issued, error)

	// Reissue swaps the presented credentials for the requested
	// values.
	Reissue(ctx context.Context, vertex graph.VertexID, present Typed[*wabisabi.Credential], request Typed[uint64]) (Issued, error)

	// RegisterOutput presents the credentials funding an output; it is
	// terminal and yields nothing.
	RegisterOutput(ctx context.Context, vertex graph.VertexID, present Typed[*wabisabi.Credential]) error
}

// Scheduler runs one round's graph.
type Scheduler struct {
	snapshot *graph.Snapshot
	handler  RequestHandler
	timeout  time.Duration

	// one single-producer single-consumer cell per edge per type
	cells [graph.NumTypes][]chan *wabisabi.Credential
}

// New prepares a scheduler for a resolved graph snapshot.
// requestTimeout bounds each vertex's network round trip; zero means
// no per-vertex deadline.
func New(snapshot *graph.Snapshot, handler RequestHandler, requestTimeout time.Duration) *Scheduler {
	s := &Scheduler{snapshot: snapshot, handler: handler, timeout: requestTimeout}
	for _, t := range graph.CredentialTypes {
		s.cells[t] = make([]chan *wabisabi.Credential, len(snapshot.Edges[t]))
		for i := range s.cells[t] {
			s.cells[t][i] = make(chan *wabisabi.Credential, 1)
		}
	}
	return s
}

// Run executes every vertex task and waits for all of them. The first
// failure cancels the round; pending cells are simply dropped and
// their consumers observe cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for v := range s.snapshot.Kinds {
		wg.Add(1)
		go func(v graph.VertexID) {
			defer wg.Done()
			if err := s.runVertex(ctx, v); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(graph.VertexID(v))
	}
	wg.Wait()
	return firstErr
}

func (s *Scheduler) runVertex(ctx context.Context, v graph.VertexID) error {
	Logger.WithField("vertex", v).WithField("kind", s.snapshot.Kinds[v].String()).
		Trace("vertex task started")
	switch s.snapshot.Kinds[v] {
	case graph.Input:
		return s.runInput(ctx, v)
	case graph.Reissuance:
		return s.runReissuance(ctx, v)
	default:
		return s.runOutput(ctx, v)
	}
}

func (s *Scheduler) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Scheduler) runInput(ctx context.Context, v graph.VertexID) error {
	rctx, cancel := s.requestCtx(ctx)
	bootstrap, err := s.handler.RegisterInput(rctx, v)
	cancel()
	if err != nil {
		return err
	}

	rctx, cancel = s.requestCtx(ctx)
	issued, err := s.handler.ConfirmConnection(rctx, v, bootstrap.Zero, s.requestedValues(v))
	cancel()
	if err != nil {
		return err
	}
	return s.fulfillOutEdges(v, issued)
}

func (s *Scheduler) runReissuance(ctx context.Context, v graph.VertexID) error {
	present, err := s.awaitInEdges(ctx, v)
	if err != nil {
		return err
	}
	rctx, cancel := s.requestCtx(ctx)
	issued, err := s.handler.Reissue(rctx, v, present, s.requestedValues(v))
	cancel()
	if err != nil {
		return err
	}
	return s.fulfillOutEdges(v, issued)
}

func (s *Scheduler) runOutput(ctx context.Context, v graph.VertexID) error {
	present, err := s.awaitInEdges(ctx, v)
	if err != nil {
		return err
	}
	rctx, cancel := s.requestCtx(ctx)
	defer cancel()
	return s.handler.RegisterOutput(rctx, v, present)
}

// awaitInEdges blocks until every in-edge cell is fulfilled. In-edges
// may fill in any order; the vertex fires only when all are set.
func (s *Scheduler) awaitInEdges(ctx context.Context, v graph.VertexID) (Typed[*wabisabi.Credential], error) {
	var present Typed[*wabisabi.Credential]
	for _, t := range graph.CredentialTypes {
		for _, idx := range s.snapshot.InEdges[t][v] {
			select {
			case c := <-s.cells[t][idx]:
				present[t] = append(present[t], c)
			case <-ctx.Done():
				return present, errors.WrapPrefix(ErrEdgeNotFulfilled, ctx.Err().Error(), 0)
			}
		}
	}
	return present, nil
}

// requestedValues lists the non-zero out-edge values per type, in edge
// order. The handler pads its credential request with zeros; the
// response order therefore matches the edge order.
func (s *Scheduler) requestedValues(v graph.VertexID) Typed[uint64] {
	var values Typed[uint64]
	for _, t := range graph.CredentialTypes {
		for _, idx := range s.snapshot.OutEdges[t][v] {
			if e := s.snapshot.Edges[t][idx]; e.Value > 0 {
				values[t] = append(values[t], e.Value)
			}
		}
	}
	return values
}

// fulfillOutEdges feeds the issued credentials into the out-edge
// cells: real credentials to the non-zero edges in order, zero
// credentials to the filler edges.
func (s *Scheduler) fulfillOutEdges(v graph.VertexID, issued Issued) error {
	for _, t := range graph.CredentialTypes {
		real, zero := issued.Real[t], issued.Zero[t]
		for _, idx := range s.snapshot.OutEdges[t][v] {
			e := s.snapshot.Edges[t][idx]
			var c *wabisabi.Credential
			if e.Value > 0 {
				for len(real) > 0 && credentialValue(real[0], t) == 0 {
					real = real[1:] // zero-padded slots of the real request
				}
				if len(real) == 0 {
					return errors.WrapPrefix(ErrEdgeNotFulfilled, "issued credentials exhausted", 0)
				}
				c = real[0]
				real = real[1:]
				if credentialValue(c, t) != e.Value {
					return errors.WrapPrefix(ErrEdgeNotFulfilled, "issued credential value mismatch", 0)
				}
			} else {
				if len(zero) == 0 {
					return errors.WrapPrefix(ErrEdgeNotFulfilled, "zero credentials exhausted", 0)
				}
				c = zero[0]
				zero = zero[1:]
			}
			s.cells[t][idx] <- c
		}
	}
	return nil
}

func credentialValue(c *wabisabi.Credential, t graph.CredentialType) uint64 {
	if t == graph.Amount {
		return c.Amount
	}
	return c.Vsize
}
