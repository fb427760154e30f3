package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// checkLaws verifies the sum, degree and zero-fill laws on a resolved
// graph.
func checkLaws(t *testing.T, g *Graph) {
	t.Helper()
	require.NoError(t, g.checkInvariants())

	snapshot, err := g.Snapshot()
	require.NoError(t, err)
	for _, ct := range CredentialTypes {
		for v := range snapshot.Kinds {
			if snapshot.Kinds[v] != Input {
				require.Len(t, snapshot.InEdges[ct][v], snapshot.K,
					"every non-input vertex presents exactly k credentials")
			} else {
				require.Empty(t, snapshot.InEdges[ct][v])
			}
		}
	}
}

func countKind(g *Graph, kind VertexKind) int {
	n := 0
	for i := range g.vertices {
		if g.vertices[i].kind == kind {
			n++
		}
	}
	return n
}

func edgeValues(s *Snapshot, ct CredentialType, from, to VertexID) []uint64 {
	var out []uint64
	for _, e := range s.Edges[ct] {
		if e.From == from && e.To == to {
			out = append(out, e.Value)
		}
	}
	return out
}

func TestSingleInputSingleOutput(t *testing.T) {
	g := New(2)
	in := g.AddInput(1_000_000, 200)
	out := g.AddOutput(1_000_000, 200)
	require.NoError(t, g.Resolve())
	checkLaws(t, g)

	require.Zero(t, countKind(g, Reissuance))
	s, err := g.Snapshot()
	require.NoError(t, err)
	values := edgeValues(s, Amount, in, out)
	require.Contains(t, values, uint64(1_000_000))
	// the second in-slot is a zero filler
	require.Len(t, s.InEdges[Amount][out], 2)
	require.Contains(t, values, uint64(0))
}

func TestSplitting(t *testing.T) {
	g := New(2)
	in := g.AddInput(1_000_000, 0)
	outA := g.AddOutput(600_000, 0)
	outB := g.AddOutput(400_000, 0)
	require.NoError(t, g.Resolve())
	checkLaws(t, g)

	require.Zero(t, countKind(g, Reissuance))
	s, err := g.Snapshot()
	require.NoError(t, err)
	require.Contains(t, edgeValues(s, Amount, in, outA), uint64(600_000))
	require.Contains(t, edgeValues(s, Amount, in, outB), uint64(400_000))
}

func TestMergingTwoInputsNeedsNoReissuance(t *testing.T) {
	g := New(2)
	g.AddInput(300_000, 0)
	g.AddInput(700_000, 0)
	g.AddOutput(1_000_000, 0)
	require.NoError(t, g.Resolve())
	checkLaws(t, g)
	require.Zero(t, countKind(g, Reissuance))
}

func TestMergingThreeInputsInsertsOneReissuance(t *testing.T) {
	g := New(2)
	g.AddInput(300_000, 0)
	g.AddInput(300_000, 0)
	g.AddInput(400_000, 0)
	out := g.AddOutput(1_000_000, 0)
	require.NoError(t, g.Resolve())
	checkLaws(t, g)

	require.Equal(t, 1, countKind(g, Reissuance))
	s, err := g.Snapshot()
	require.NoError(t, err)
	// the output is fed by exactly two non-zero edges
	nonZero := 0
	var total uint64
	for _, idx := range s.InEdges[Amount][out] {
		if v := s.Edges[Amount][idx].Value; v > 0 {
			nonZero++
			total += v
		}
	}
	require.Equal(t, 2, nonZero)
	require.Equal(t, uint64(1_000_000), total)
}

func TestFeeRemainderStaysOnInput(t *testing.T) {
	g := New(2)
	in := g.AddInput(1_000_000, 0)
	g.AddOutput(900_000, 0)
	require.NoError(t, g.Resolve())

	require.Equal(t, int64(100_000), g.Balance(in, Amount))
}

func TestOutputsExceedingInputsRejected(t *testing.T) {
	g := New(2)
	g.AddInput(100, 0)
	g.AddOutput(200, 0)
	require.Error(t, g.Resolve())
}

func TestManyInputsToOneOutput(t *testing.T) {
	g := New(2)
	for i := 0; i < 8; i++ {
		g.AddInput(125, 10)
	}
	g.AddOutput(1_000, 80)
	require.NoError(t, g.Resolve())
	checkLaws(t, g)
	require.True(t, countKind(g, Reissuance) >= 3,
		"eight equal inputs cannot reach one output without consolidation")
}

func TestOneInputToManyOutputs(t *testing.T) {
	g := New(2)
	g.AddInput(1_000, 0)
	for i := 0; i < 6; i++ {
		g.AddOutput(100, 0)
	}
	g.AddOutput(400, 0)
	require.NoError(t, g.Resolve())
	checkLaws(t, g)
	require.True(t, countKind(g, Reissuance) > 0)
}

func TestVsizeResolvedIndependently(t *testing.T) {
	g := New(2)
	g.AddInput(500, 120)
	g.AddInput(500, 120)
	g.AddOutput(600, 80)
	g.AddOutput(400, 160)
	require.NoError(t, g.Resolve())
	checkLaws(t, g)
}

func TestDeterministicResolution(t *testing.T) {
	build := func() *Snapshot {
		g := New(2)
		g.AddInput(700, 0)
		g.AddInput(300, 0)
		g.AddOutput(550, 0)
		g.AddOutput(450, 0)
		require.NoError(t, g.Resolve())
		s, err := g.Snapshot()
		require.NoError(t, err)
		return s
	}
	a, b := build(), build()
	require.Equal(t, a.Edges, b.Edges)
	require.Equal(t, a.Kinds, b.Kinds)
}

func TestSnapshotRequiresResolve(t *testing.T) {
	g := New(2)
	g.AddInput(1, 0)
	_, err := g.Snapshot()
	require.Error(t, err)
}

func TestTopologicalOrderTerminates(t *testing.T) {
	g := New(2)
	for i := 0; i < 5; i++ {
		g.AddInput(1_000, 0)
	}
	for i := 0; i < 5; i++ {
		g.AddOutput(1_000, 0)
	}
	require.NoError(t, g.Resolve())
	order, err := g.topologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, len(g.vertices))
}
