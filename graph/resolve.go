package graph

import (
	"sort"
	"strconv"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
)

// Resolve discharges every negative balance per credential type, then
// fills the remaining in-slots with zero-valued edges, and finally
// checks the sum, degree and acyclicity laws. Undischarged positive
// balance may remain only on input vertices, where it is the publicly
// declared fee remainder.
func (g *Graph) Resolve() error {
	for _, t := range CredentialTypes {
		var total int64
		for i := range g.vertices {
			total += g.vertices[i].balance[t]
		}
		if total < 0 {
			return errors.WrapPrefix(ErrInsufficientFunds, "type "+strconv.Itoa(int(t)), 0)
		}
	}
	for _, t := range CredentialTypes {
		if err := g.resolveNegativeBalances(t); err != nil {
			return err
		}
	}
	for _, t := range CredentialTypes {
		if err := g.resolveZeroCredentials(t); err != nil {
			return err
		}
	}
	g.resolved = true
	if err := g.checkInvariants(); err != nil {
		return err
	}
	Logger.WithFields(logrus.Fields{
		"vertices": len(g.vertices),
		"amount":   len(g.edges[Amount]),
		"vsize":    len(g.edges[Vsize]),
	}).Debug("dependency graph resolved")
	return nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// withSign returns vertex ids whose balance has the given sign,
// ordered by (magnitude desc, remaining non-zero out desc, remaining
// zero out desc), ties broken by arena order.
func (g *Graph) withSign(t CredentialType, sign int) []VertexID {
	var ids []VertexID
	for i := range g.vertices {
		b := g.vertices[i].balance[t]
		if (sign > 0 && b > 0) || (sign < 0 && b < 0) {
			ids = append(ids, VertexID(i))
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		am, bm := abs64(g.vertices[a].balance[t]), abs64(g.vertices[b].balance[t])
		if am != bm {
			return am > bm
		}
		if x, y := g.remainingNonZeroOut(a, t), g.remainingNonZeroOut(b, t); x != y {
			return x > y
		}
		return g.remainingZeroOut(a, t) > g.remainingZeroOut(b, t)
	})
	return ids
}

func reverse(ids []VertexID) []VertexID {
	out := make([]VertexID, len(ids))
	for i := range ids {
		out[i] = ids[len(ids)-1-i]
	}
	return out
}

// resolveNegativeBalances repeatedly matches negative-balance vertices
// with positive ones until no negative remains.
func (g *Graph) resolveNegativeBalances(t CredentialType) error {
	guard := 8*len(g.vertices) + 64
	for iter := 0; ; iter++ {
		if iter > guard {
			return errors.WrapPrefix(ErrBalanceNotDischarged, "resolver did not converge", 0)
		}
		negatives := g.withSign(t, -1)
		if len(negatives) == 0 {
			return nil
		}
		positives := g.withSign(t, +1)
		if len(positives) == 0 {
			return errors.WrapPrefix(ErrInsufficientFunds, "no positive balance left", 0)
		}

		if done, err := g.fastPath(t, positives, negatives); err != nil {
			return err
		} else if done {
			continue
		}

		if err := g.generalPass(t, positives, negatives); err != nil {
			return err
		}
	}
}

// fastPath covers the uniform decomposition shapes: equal-valued
// unconstrained positives with strictly smaller negatives, and
// pairwise domination. It reports whether it made progress; the
// preconditions are checked before any mutation so bailing out is
// side-effect free.
func (g *Graph) fastPath(t CredentialType, positives, negatives []VertexID) (bool, error) {
	uniform := true
	val := g.vertices[positives[0]].balance[t]
	for _, p := range positives {
		if g.vertices[p].balance[t] != val || g.remainingNonZeroOut(p, t) <= 1 {
			uniform = false
			break
		}
	}
	if uniform && abs64(g.vertices[negatives[0]].balance[t]) < val {
		if plan, ok := g.planForest(t, negatives, len(positives), val); ok {
			merged, err := g.executeForest(t, plan)
			if err != nil {
				return false, err
			}
			// match positives and reduced negatives one to one
			for i, p := range positives {
				if i >= len(merged) {
					break
				}
				n := merged[i]
				if err := g.addEdge(p, n, t, uint64(abs64(g.vertices[n].balance[t]))); err != nil {
					return false, err
				}
			}
			return true, nil
		}
	}

	// pairwise domination: both lists magnitude-descending
	if len(positives) >= len(negatives) {
		dominates := true
		for i, n := range negatives {
			p := positives[i]
			need := abs64(g.vertices[n].balance[t])
			have := g.vertices[p].balance[t]
			if have < need {
				dominates = false
				break
			}
			slots := g.remainingNonZeroOut(p, t)
			if slots < 1 || (have > need && slots < 2) {
				dominates = false
				break
			}
		}
		if dominates {
			for i, n := range negatives {
				if err := g.addEdge(positives[i], n, t, uint64(abs64(g.vertices[n].balance[t]))); err != nil {
					return false, err
				}
			}
			return true, nil
		}
	}
	return false, nil
}

// foldStep folds up to k sibling negatives under one fresh
// reissuance node.
type foldStep struct {
	children []VertexID
	sum      int64
}

// planForest simulates a breadth-first k-ary fold of the negatives
// down to the target count, without touching the graph. It fails when
// a folded node would stop being strictly smaller than the uniform
// positive value, or when the fold would need to nest.
func (g *Graph) planForest(t CredentialType, negatives []VertexID, target int, limit int64) ([]foldStep, bool) {
	type node struct {
		id  VertexID // -1 for planned reissuances
		sum int64
	}
	current := make([]node, len(negatives))
	// smallest first so folds stay shallow
	for i, n := range reverse(negatives) {
		current[i] = node{id: n, sum: abs64(g.vertices[n].balance[t])}
	}
	var plan []foldStep
	for len(current) > target {
		take := g.k
		if take > len(current)-target+1 {
			take = len(current) - target + 1
		}
		if take < 2 {
			break
		}
		var step foldStep
		for _, c := range current[:take] {
			if c.id < 0 {
				// nesting planned nodes is no longer breadth-first;
				// leave it to the general pass
				return nil, false
			}
			step.children = append(step.children, c.id)
			step.sum += c.sum
		}
		if step.sum >= limit {
			return nil, false
		}
		plan = append(plan, step)
		current = append(append([]node{}, current[take:]...), node{id: -1, sum: step.sum})
		sort.SliceStable(current, func(i, j int) bool { return current[i].sum < current[j].sum })
	}
	if len(current) != target {
		return nil, false
	}
	return plan, true
}

// executeForest materializes a fold plan and returns the resulting
// negative vertices in magnitude-descending order.
func (g *Graph) executeForest(t CredentialType, plan []foldStep) ([]VertexID, error) {
	for _, step := range plan {
		r := g.addReissuance()
		for _, child := range step.children {
			need := abs64(g.vertices[child].balance[t])
			if err := g.addEdge(r, child, t, uint64(need)); err != nil {
				return nil, err
			}
		}
	}
	return g.withSign(t, -1), nil
}

// generalPass handles one largest-magnitude node: a positive is
// drained into the smallest negatives covering it, a negative is
// filled from the smallest positives covering it. Fan-in/fan-out
// overflows are reduced by folding through fresh reissuance nodes.
func (g *Graph) generalPass(t CredentialType, positives, negatives []VertexID) error {
	var l VertexID
	if abs64(g.vertices[positives[0]].balance[t]) >= abs64(g.vertices[negatives[0]].balance[t]) {
		l = positives[0]
	} else {
		l = negatives[0]
	}

	if g.vertices[l].balance[t] > 0 {
		return g.drainPositive(t, l, reverse(negatives))
	}
	return g.fillNegative(t, l, reverse(positives))
}

// selectCover takes candidates ascending by magnitude until their sum
// reaches or exceeds the target or the list is exhausted; the flag
// reports whether the target was covered.
func (g *Graph) selectCover(t CredentialType, ascending []VertexID, target int64) ([]VertexID, bool) {
	var sum int64
	for i, v := range ascending {
		sum += abs64(g.vertices[v].balance[t])
		if sum >= target {
			return ascending[:i+1], true
		}
	}
	return ascending, false
}

func (g *Graph) drainPositive(t CredentialType, l VertexID, negAscending []VertexID) error {
	remaining := g.vertices[l].balance[t]
	selection, fullDrain := g.selectCover(t, negAscending, remaining)

	avail := g.remainingNonZeroOut(l, t)
	if !fullDrain {
		// the remainder keeps one change slot reserved
		avail--
	}
	if avail < 1 {
		return errors.WrapPrefix(ErrDegreeExceeded, "positive vertex has no free out-slot", 0)
	}
	selection, err := g.reduceNegatives(t, selection, avail)
	if err != nil {
		return err
	}
	for _, n := range selection {
		if remaining == 0 {
			break
		}
		v := abs64(g.vertices[n].balance[t])
		if v > remaining {
			v = remaining
		}
		if err := g.addEdge(l, n, t, uint64(v)); err != nil {
			return err
		}
		remaining -= v
	}
	return nil
}

// reduceNegatives folds the smallest selected negatives through
// reissuance nodes until the selection fits the available fan-out.
func (g *Graph) reduceNegatives(t CredentialType, selection []VertexID, avail int) ([]VertexID, error) {
	for len(selection) > avail {
		take := g.k
		if take > len(selection) {
			take = len(selection)
		}
		r := g.addReissuance()
		for _, n := range selection[:take] {
			need := abs64(g.vertices[n].balance[t])
			if err := g.addEdge(r, n, t, uint64(need)); err != nil {
				return nil, err
			}
		}
		rest := append([]VertexID{}, selection[take:]...)
		selection = insertByMagnitude(g, t, rest, r)
	}
	return selection, nil
}

func (g *Graph) fillNegative(t CredentialType, l VertexID, posAscending []VertexID) error {
	need := abs64(g.vertices[l].balance[t])
	selection, _ := g.selectCover(t, posAscending, need)

	// the partially drained last element must keep a change slot
	trimmed := selection
	for len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		var sum int64
		for _, p := range trimmed[:len(trimmed)-1] {
			sum += g.vertices[p].balance[t]
		}
		partial := sum+g.vertices[last].balance[t] > need
		if partial && g.remainingNonZeroOut(last, t) < 2 {
			trimmed = trimmed[:len(trimmed)-1]
			continue
		}
		break
	}
	if len(trimmed) == 0 {
		return errors.WrapPrefix(ErrDegreeExceeded, "no positive can feed the negative vertex", 0)
	}
	selection = trimmed

	avail := g.remainingIn(l, t)
	if avail < 1 {
		return errors.WrapPrefix(ErrDegreeExceeded, "negative vertex has no free in-slot", 0)
	}
	selection, err := g.reducePositives(t, selection, avail)
	if err != nil {
		return err
	}
	remaining := need
	for _, p := range selection {
		if remaining == 0 {
			break
		}
		v := g.vertices[p].balance[t]
		if v > remaining {
			v = remaining
		}
		if err := g.addEdge(p, l, t, uint64(v)); err != nil {
			return err
		}
		remaining -= v
	}
	return nil
}

// reducePositives folds the smallest selected positives through
// reissuance nodes until the selection fits the available fan-in.
func (g *Graph) reducePositives(t CredentialType, selection []VertexID, avail int) ([]VertexID, error) {
	for len(selection) > avail {
		take := g.k
		if take > len(selection) {
			take = len(selection)
		}
		r := g.addReissuance()
		for _, p := range selection[:take] {
			have := g.vertices[p].balance[t]
			if err := g.addEdge(p, r, t, uint64(have)); err != nil {
				return nil, err
			}
		}
		rest := append([]VertexID{}, selection[take:]...)
		selection = insertByMagnitude(g, t, rest, r)
	}
	return selection, nil
}

// insertByMagnitude keeps an ascending-by-magnitude selection sorted
// after appending a fresh node.
func insertByMagnitude(g *Graph, t CredentialType, ids []VertexID, v VertexID) []VertexID {
	m := abs64(g.vertices[v].balance[t])
	pos := sort.Search(len(ids), func(i int) bool {
		return abs64(g.vertices[ids[i]].balance[t]) >= m
	})
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = v
	return ids
}
