package formula

import (
	"errors"
	"math/big"

	"github.com/rs/zerolog"
)

// Backend materializes operations whose operands are not all constants.
type Backend interface {
	// Materialize requests a computation of op over left and right, at least
	// one of which is a handle, and returns a handle to its result. The
	// compiler calls Materialize at most once per operation and never retries
	// it. Comparison operators produce 1 for true and 0 for false; see
	// Op.CompareMode. Division must be safe against zero divisors at runtime.
	//
	// A Backend used by concurrent calls to Parse must be safe for concurrent
	// use.
	Materialize(op Op, left, right Value) (Handle, error)
}

// Namer is implemented by backends which can attach names to results.
type Namer interface {
	// Name names the computation that produced h.
	Name(h Handle, name string) error
}

// BackendFunc adapts a function to a Backend.
type BackendFunc func(op Op, left, right Value) (Handle, error)

// Materialize calls f.
func (f BackendFunc) Materialize(op Op, left, right Value) (Handle, error) {
	return f(op, left, right)
}

// reducer collapses normalized sequences to values.
type reducer struct {
	be   Backend
	prec uint
	log  zerolog.Logger
	// made counts materialized operations.
	made int
}

// reduce collapses a sequence to a single value. Within each precedence tier,
// operators are applied left to right; each tier is finished before the next
// is scanned. Nested sequences are reduced when an operator reaches them.
func (r *reducer) reduce(seq []term) (Value, error) {
	for tier := 0; tier < Tiers && len(seq) > 1; tier++ {
		next := make([]term, 1, len(seq))
		next[0] = seq[0]
		for i := 1; i+1 < len(seq); i += 2 {
			op := seq[i]
			if op.kind != termOp {
				return Value{}, &StructureError{Col: op.pos, Seq: seqString(seq).String()}
			}
			if op.op.Tier() != tier {
				next = append(next, op, seq[i+1])
				continue
			}
			l := next[len(next)-1]
			v, err := r.apply(l, op, seq[i+1])
			if err != nil {
				return Value{}, err
			}
			next[len(next)-1] = term{kind: termValue, pos: l.pos, val: v}
		}
		seq = next
	}
	if len(seq) != 1 {
		return Value{}, &StructureError{Col: seq[0].pos, Seq: seqString(seq).String()}
	}
	return r.value(seq[0])
}

// value reduces a single operand.
func (r *reducer) value(t term) (Value, error) {
	switch t.kind {
	case termValue:
		return t.val, nil
	case termGroup:
		return r.reduce(t.sub)
	default:
		return Value{}, &StructureError{Col: t.pos, Seq: seqString{t}.String()}
	}
}

// apply reduces one operator and its operands, folding if both are constants
// and materializing otherwise.
func (r *reducer) apply(lt, op, rt term) (Value, error) {
	x, err := r.value(lt)
	if err != nil {
		return Value{}, err
	}
	y, err := r.value(rt)
	if err != nil {
		return Value{}, err
	}
	if x.IsConst() && y.IsConst() {
		z, err := r.fold(op, x.Const(), y.Const())
		if err != nil {
			return Value{}, err
		}
		r.log.Debug().
			Stringer("op", op.op).
			Stringer("left", x).
			Stringer("right", y).
			Str("result", z.Text('g', -1)).
			Msg("fold")
		return Const(z), nil
	}
	if r.be == nil {
		return Value{}, &MaterializeError{Col: op.pos, Op: op.op, Err: ErrNoBackend}
	}
	h, err := r.be.Materialize(op.op, x, y)
	if err != nil {
		return Value{}, &MaterializeError{Col: op.pos, Op: op.op, Err: err}
	}
	if h == nil {
		return Value{}, &MaterializeError{Col: op.pos, Op: op.op, Err: errors.New("backend returned no handle")}
	}
	r.made++
	r.log.Debug().
		Stringer("op", op.op).
		Stringer("left", x).
		Stringer("right", y).
		Stringer("shape", h.Shape()).
		Msg("materialize")
	return Ref(h), nil
}

// fold computes an operator over constants, attaching the operator position
// to any error.
func (r *reducer) fold(op term, x, y *big.Float) (z *big.Float, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		// Infinite operands can produce NaNs, which big.Float reports by
		// panicking.
		if _, ok := p.(big.ErrNaN); !ok {
			panic(p)
		}
		z, err = nil, &DomainError{Col: op.pos, X: x, Arg: 1, Op: op.op}
	}()
	z, err = op.op.Fold(r.prec, x, y)
	var dz *DivisionByZeroError
	var de *DomainError
	switch {
	case errors.As(err, &dz):
		dz.Col = op.pos
	case errors.As(err, &de):
		de.Col = op.pos
	}
	return z, err
}
