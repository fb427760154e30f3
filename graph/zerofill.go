package graph

import (
	"github.com/go-errors/errors"
)

// resolveZeroCredentials fills every remaining in-slot with a
// zero-valued edge so that each request can present exactly k
// credentials. Sources are taken in topological order from vertices
// whose own in-edges are already complete, so the credential a zero
// edge carries is always obtainable before its consumer fires.
// Reissuance vertices expose k*(k-1) zero out-slots, which the fold
// arithmetic makes exactly sufficient.
func (g *Graph) resolveZeroCredentials(t CredentialType) error {
	order, err := g.topologicalOrder()
	if err != nil {
		return err
	}
	position := make([]int, len(g.vertices))
	for i, v := range order {
		position[v] = i
	}

	for _, v := range order {
		if g.vertices[v].kind == Input {
			continue
		}
		for g.remainingIn(v, t) > 0 {
			source := VertexID(-1)
			for _, u := range order[:position[v]] {
				saturated := g.vertices[u].kind == Input || g.vertices[u].inDegree[t] == g.k
				if saturated && g.remainingZeroOut(u, t) > 0 {
					source = u
					break
				}
			}
			if source < 0 {
				return errors.WrapPrefix(ErrDegreeExceeded,
					"no zero-credential source for "+g.vertices[v].kind.String(), 0)
			}
			if err := g.addEdge(source, v, t, 0); err != nil {
				return err
			}
		}
	}
	return nil
}
