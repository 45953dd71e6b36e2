package formula

import (
	"strings"
)

// term is an element of a sequence of terms at one level of parenthesis
// nesting. A well-formed sequence alternates operands and operators, starting
// and ending with an operand.
type term struct {
	kind termKind
	// pos is the position of the first token of the term.
	pos int

	text string
	op   Op
	val  Value
	sub  []term
}

type termKind int8

const (
	termNone termKind = iota

	termNum   // text is a numeric literal
	termName  // text is a variable name
	termOp    // op is a binary operator, or - before normalization
	termValue // val is a resolved value
	termGroup // sub is a parenthesized sequence
)

//go:generate stringer -type=termKind -trimprefix=term

func (t term) isOperand() bool {
	return t.kind != termOp && t.kind != termNone
}

func (t term) String() string {
	var b strings.Builder
	t.fmt(&b, false)
	return b.String()
}

func (t term) fmt(b *strings.Builder, square bool) {
	switch t.kind {
	case termNum, termName:
		b.WriteString(t.text)
	case termOp:
		b.WriteString(t.op.Symbol())
	case termValue:
		b.WriteString(t.val.String())
	case termGroup:
		fmtseq(b, t.sub, !square)
	default:
		// Invalid terms use invalid characters.
		b.WriteString("$" + t.kind.String() + "$")
	}
}

// fmtseq writes a sequence with alternating round and square brackets
// grouping each nesting level.
func fmtseq(b *strings.Builder, seq []term, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	for i, t := range seq {
		if i > 0 {
			b.WriteByte(' ')
		}
		t.fmt(b, square)
	}
	b.WriteByte(r)
}

// seqString formats a sequence for log messages and errors.
type seqString []term

func (s seqString) String() string {
	var b strings.Builder
	fmtseq(&b, s, false)
	return b.String()
}
