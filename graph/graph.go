// Package graph builds the credential dependency graph of one mixing
// round: a DAG whose vertices are input registrations, output
// registrations and intermediate reissuances, and whose edges carry
// credential amounts per credential type. The resolver turns signed
// per-vertex balances into edges respecting the per-request fan-in and
// fan-out bounds, then fills every remaining in-slot with zero-valued
// credentials so each request can present exactly k credentials.
package graph

import (
	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
)

// Logger is shared with the root package.
var Logger = logrus.StandardLogger()

// CredentialType selects which attribute an edge or balance refers to.
type CredentialType int

const (
	Amount CredentialType = iota
	Vsize
)

// NumTypes is the number of credential types carried per request.
const NumTypes = 2

// CredentialTypes lists the types in resolution order.
var CredentialTypes = [NumTypes]CredentialType{Amount, Vsize}

// VertexKind discriminates the three vertex roles.
type VertexKind int

const (
	Input VertexKind = iota
	Output
	Reissuance
)

func (k VertexKind) String() string {
	switch k {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "reissuance"
	}
}

// VertexID is a stable arena index.
type VertexID int

// Edge carries one credential of one type from its source vertex's
// request to its sink vertex's request. Zero-valued edges exist only
// to fill presentation slots.
type Edge struct {
	From  VertexID
	To    VertexID
	Type  CredentialType
	Value uint64
}

// Resolver errors. Degree and discharge failures indicate a resolver
// bug, not bad input; they abort the round with the violated bound.
var (
	ErrDegreeExceeded       = errors.Errorf("degree exceeded")
	ErrBalanceNotDischarged = errors.Errorf("balance not discharged")
	ErrInsufficientFunds    = errors.Errorf("outputs exceed inputs")
)

type vertex struct {
	kind VertexKind

	balance   [NumTypes]int64
	inDegree  [NumTypes]int
	nonZeroOut [NumTypes]int
	zeroOut    [NumTypes]int
}

// Graph is the mutable arena the resolver works on. After Resolve it
// is frozen into a Snapshot for the runtime.
type Graph struct {
	k        int
	vertices []vertex
	edges    [NumTypes][]Edge
	resolved bool
}

// New creates an empty graph with credential multiplicity k.
func New(k int) *Graph {
	if k < 2 {
		panic("credential multiplicity must be at least 2")
	}
	return &Graph{k: k}
}

// K returns the credential multiplicity.
func (g *Graph) K() int { return g.k }

// AddInput adds an input vertex contributing the given values.
func (g *Graph) AddInput(amount, vsize uint64) VertexID {
	return g.addVertex(Input, int64(amount), int64(vsize))
}

// AddOutput adds an output vertex consuming the given values.
func (g *Graph) AddOutput(amount, vsize uint64) VertexID {
	return g.addVertex(Output, -int64(amount), -int64(vsize))
}

func (g *Graph) addVertex(kind VertexKind, amount, vsize int64) VertexID {
	g.vertices = append(g.vertices, vertex{kind: kind, balance: [NumTypes]int64{amount, vsize}})
	return VertexID(len(g.vertices) - 1)
}

func (g *Graph) addReissuance() VertexID {
	return g.addVertex(Reissuance, 0, 0)
}

// Kind returns a vertex's role.
func (g *Graph) Kind(v VertexID) VertexKind { return g.vertices[v].kind }

// Balance returns a vertex's remaining balance for a type.
func (g *Graph) Balance(v VertexID, t CredentialType) int64 { return g.vertices[v].balance[t] }

func (g *Graph) maxInDegree(v VertexID) int {
	if g.vertices[v].kind == Input {
		return 0
	}
	return g.k
}

func (g *Graph) maxNonZeroOut(v VertexID) int {
	if g.vertices[v].kind == Output {
		return 0
	}
	return g.k
}

func (g *Graph) maxZeroOut(v VertexID) int {
	switch g.vertices[v].kind {
	case Input:
		return g.k
	case Output:
		return 0
	default:
		return g.k * (g.k - 1)
	}
}

func (g *Graph) remainingIn(v VertexID, t CredentialType) int {
	return g.maxInDegree(v) - g.vertices[v].inDegree[t]
}

func (g *Graph) remainingNonZeroOut(v VertexID, t CredentialType) int {
	return g.maxNonZeroOut(v) - g.vertices[v].nonZeroOut[t]
}

func (g *Graph) remainingZeroOut(v VertexID, t CredentialType) int {
	return g.maxZeroOut(v) - g.vertices[v].zeroOut[t]
}

// addEdge records a credential transfer, enforcing the degree bounds
// and maintaining the balance sums.
func (g *Graph) addEdge(from, to VertexID, t CredentialType, value uint64) error {
	if value == 0 {
		if g.remainingZeroOut(from, t) < 1 {
			return errors.WrapPrefix(ErrDegreeExceeded, "zero out-degree of "+g.vertices[from].kind.String(), 0)
		}
	} else {
		if g.remainingNonZeroOut(from, t) < 1 {
			return errors.WrapPrefix(ErrDegreeExceeded, "non-zero out-degree of "+g.vertices[from].kind.String(), 0)
		}
	}
	if g.remainingIn(to, t) < 1 {
		return errors.WrapPrefix(ErrDegreeExceeded, "in-degree of "+g.vertices[to].kind.String(), 0)
	}

	g.edges[t] = append(g.edges[t], Edge{From: from, To: to, Type: t, Value: value})
	if value == 0 {
		g.vertices[from].zeroOut[t]++
	} else {
		g.vertices[from].nonZeroOut[t]++
	}
	g.vertices[to].inDegree[t]++
	g.vertices[from].balance[t] -= int64(value)
	g.vertices[to].balance[t] += int64(value)
	return nil
}

// Snapshot is the immutable view handed to the execution runtime.
type Snapshot struct {
	K        int
	Kinds    []VertexKind
	Edges    [NumTypes][]Edge
	InEdges  [NumTypes][][]int // per type, per vertex: indices into Edges
	OutEdges [NumTypes][][]int
}

// Snapshot freezes the resolved graph.
func (g *Graph) Snapshot() (*Snapshot, error) {
	if !g.resolved {
		return nil, errors.Errorf("graph not resolved")
	}
	s := &Snapshot{K: g.k, Kinds: make([]VertexKind, len(g.vertices))}
	for i := range g.vertices {
		s.Kinds[i] = g.vertices[i].kind
	}
	for _, t := range CredentialTypes {
		s.Edges[t] = append([]Edge(nil), g.edges[t]...)
		s.InEdges[t] = make([][]int, len(g.vertices))
		s.OutEdges[t] = make([][]int, len(g.vertices))
		for i, e := range s.Edges[t] {
			s.InEdges[t][e.To] = append(s.InEdges[t][e.To], i)
			s.OutEdges[t][e.From] = append(s.OutEdges[t][e.From], i)
		}
	}
	return s, nil
}

// topologicalOrder returns the vertices sorted so that every edge goes
// from an earlier to a later position. The resolver only ever adds
// forward edges, so a cycle is an invariant violation.
func (g *Graph) topologicalOrder() ([]VertexID, error) {
	n := len(g.vertices)
	indegree := make([]int, n)
	adj := make([][]VertexID, n)
	for _, t := range CredentialTypes {
		for _, e := range g.edges[t] {
			adj[e.From] = append(adj[e.From], e.To)
			indegree[e.To]++
		}
	}
	queue := make([]VertexID, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, VertexID(i))
		}
	}
	order := make([]VertexID, 0, n)
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, w := range adj[v] {
			indegree[w]--
			if indegree[w] == 0 {
				queue = append(queue, w)
			}
		}
	}
	if len(order) != n {
		return nil, errors.Errorf("dependency graph contains a cycle")
	}
	return order, nil
}

// checkInvariants verifies the sum and degree laws after resolution.
func (g *Graph) checkInvariants() error {
	for i := range g.vertices {
		v := &g.vertices[i]
		for _, t := range CredentialTypes {
			// inputs may keep a positive remainder (the declared fee
			// surplus); everything else must balance exactly
			if v.balance[t] < 0 || (v.kind != Input && v.balance[t] != 0) {
				return errors.WrapPrefix(ErrBalanceNotDischarged, v.kind.String(), 0)
			}
			if v.inDegree[t] > g.maxInDegree(VertexID(i)) ||
				v.nonZeroOut[t] > g.maxNonZeroOut(VertexID(i)) ||
				v.zeroOut[t] > g.maxZeroOut(VertexID(i)) {
				return errors.WrapPrefix(ErrDegreeExceeded, v.kind.String(), 0)
			}
			if v.kind != Input && v.inDegree[t] != g.k {
				return errors.Errorf("%v vertex has %v in-edges for type %v, want %v",
					v.kind, v.inDegree[t], t, g.k)
			}
		}
	}
	_, err := g.topologicalOrder()
	return err
}
