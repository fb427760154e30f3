package zkp

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
)

// Equation is one row P = sum_j x_j * G_j of a linear-relation
// statement. A generator set to infinity excludes the corresponding
// witness component from the row.
type Equation struct {
	Public     secp256k1.Point
	Generators group.GroupElementVector
}

// NewEquation builds an equation row.
func NewEquation(public secp256k1.Point, generators ...secp256k1.Point) Equation {
	return Equation{Public: public, Generators: generators}
}

// Statement is a system of equations sharing a single witness vector.
// The tag names the relation being proven and domain-separates it on
// the transcript.
type Statement struct {
	Tag       string
	Equations []Equation
}

// NewStatement builds a statement from equation rows.
func NewStatement(tag string, equations ...Equation) *Statement {
	return &Statement{Tag: tag, Equations: equations}
}

// WitnessLength returns the length of the shared witness vector.
func (s *Statement) WitnessLength() int {
	if len(s.Equations) == 0 {
		return 0
	}
	return len(s.Equations[0].Generators)
}

// Validate checks structural soundness: at least one equation, equal
// row widths, no all-infinity row, and no infinity public point.
func (s *Statement) Validate() error {
	if len(s.Equations) == 0 {
		return errors.Errorf("statement %q has no equations", s.Tag)
	}
	n := len(s.Equations[0].Generators)
	if n == 0 {
		return errors.Errorf("statement %q has an empty witness", s.Tag)
	}
	for i := range s.Equations {
		eq := &s.Equations[i]
		if eq.Public.IsInfinity() {
			return errors.WrapPrefix(ErrInfinityInStatement, "statement "+s.Tag, 0)
		}
		if len(eq.Generators) != n {
			return errors.Errorf("statement %q: equation %v has %v generators, want %v", s.Tag, i, len(eq.Generators), n)
		}
		if eq.Generators.AllInfinity() {
			return errors.Errorf("statement %q: equation %v has only infinity generators", s.Tag, i)
		}
	}
	return nil
}
