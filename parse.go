package formula

import (
	"io"
	"math/big"
	"strings"
)

// Expr = Operand { op Operand }
// Operand = num | name | '-' Operand | '(' Expr ')'
// op = '~' | '^' | '*' | '/' | '+' | '-' | '=' | '!=' | '>' | '>=' | '<' | '<='
//
// Compilation runs in passes over sequences of terms, each pass producing new
// sequences: nest groups tokens by parentheses, resolve replaces literals and
// names with values, normalize rewrites unary minus, and reduce collapses each
// sequence to one value by precedence tier.

// Parse compiles an expression to a single value. Variables in the expression
// are resolved from vars, then from the builtin constants e and pi. Operations
// on constants are folded; operations involving handles are materialized by
// be, which may be nil if the expression never needs it. The given options
// are applied in order.
//
// Parse holds no state between calls and does not modify vars.
func Parse(src io.RuneScanner, vars Bindings, be Backend, opts ...ParseOption) (Value, error) {
	p := defaultctx()
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	seq, err := nest(lex(src))
	if err != nil {
		return Value{}, err
	}
	p.log.Debug().Stringer("seq", seqString(seq)).Msg("nested")

	env := builtins(p.prec)
	for k, v := range vars {
		env[k] = v
	}
	seq, err = resolve(seq, env, p.prec)
	if err != nil {
		return Value{}, err
	}
	p.log.Debug().Stringer("seq", seqString(seq)).Msg("resolved variables")

	seq, err = normalize(seq, p.prec)
	if err != nil {
		return Value{}, err
	}
	p.log.Debug().Stringer("seq", seqString(seq)).Msg("normalized prefixes")

	r := reducer{be: be, prec: p.prec, log: p.log}
	v, err := r.reduce(seq)
	if err != nil {
		return Value{}, err
	}
	p.log.Debug().Stringer("result", v).Int("materialized", r.made).Msg("reduced")
	return v, nil
}

// ParseString is a shortcut to compile a string expression.
func ParseString(src string, vars Bindings, be Backend, opts ...ParseOption) (Value, error) {
	return Parse(strings.NewReader(src), vars, be, opts...)
}

// Define compiles an expression and binds its result to name in vars, so that
// later expressions can refer to it. If the result is a handle and be
// implements Namer, the backend is asked to name the result as well. vars must
// not be nil.
func Define(vars Bindings, name, src string, be Backend, opts ...ParseOption) (Value, error) {
	if vars == nil {
		return Value{}, ErrNilBindings
	}
	v, err := ParseString(src, vars, be, opts...)
	if err != nil {
		return Value{}, err
	}
	if h := v.Handle(); h != nil {
		if n, ok := be.(Namer); ok {
			if err := n.Name(h, name); err != nil {
				return Value{}, err
			}
		}
	}
	vars[name] = v
	return v, nil
}

// Vars returns the sorted names of the variables an expression refers to,
// including builtin constants, without resolving them.
func Vars(src string) ([]string, error) {
	seq, err := nest(lex(strings.NewReader(src)))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var walk func([]term)
	walk = func(seq []term) {
		for _, t := range seq {
			switch t.kind {
			case termName:
				seen[t.text] = true
			case termGroup:
				walk(t.sub)
			}
		}
	}
	walk(seq)
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sortstrs(names)
	return names, nil
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// nest scans an entire input into a sequence of terms, grouping parenthesized
// subexpressions into nested sequences.
func nest(scan *lexer) ([]term, error) {
	seq, end, err := nestgroup(scan)
	if err != nil {
		return nil, err
	}
	if end.kind == tokenClose {
		return nil, &BracketError{Col: end.pos}
	}
	if len(seq) == 0 {
		return nil, &EmptyExpressionError{Col: end.pos}
	}
	return seq, nil
}

// nestgroup scans terms up to a close parenthesis or EOF, which it returns.
func nestgroup(scan *lexer) ([]term, lexToken, error) {
	var seq []term
	for {
		tok, err := scan.next()
		if err != nil {
			return nil, tok, err
		}
		switch tok.kind {
		case tokenNum:
			seq = append(seq, term{kind: termNum, pos: tok.pos, text: tok.text})
		case tokenIdent:
			seq = append(seq, term{kind: termName, pos: tok.pos, text: tok.text})
		case tokenOp:
			op, ok := LookupOp(tok.text)
			if !ok {
				panic("formula: lexer produced unknown operator " + tok.String())
			}
			seq = append(seq, term{kind: termOp, pos: tok.pos, op: op})
		case tokenOpen:
			sub, end, err := nestgroup(scan)
			if err != nil {
				return nil, end, err
			}
			if end.kind != tokenClose {
				return nil, end, &BracketError{Col: tok.pos, Open: true}
			}
			if len(sub) == 0 {
				return nil, end, &EmptyExpressionError{Col: end.pos, End: end.text}
			}
			seq = append(seq, term{kind: termGroup, pos: tok.pos, sub: sub})
		case tokenClose, tokenEOF:
			return seq, tok, nil
		default:
			panic("formula: unknown token: " + tok.String())
		}
	}
}

// resolve replaces literals and variable names with values, depth first.
func resolve(seq []term, env Bindings, prec uint) ([]term, error) {
	out := make([]term, len(seq))
	for i, t := range seq {
		switch t.kind {
		case termNum:
			x, err := number(t, prec)
			if err != nil {
				return nil, err
			}
			t = term{kind: termValue, pos: t.pos, val: Const(x)}
		case termName:
			v, ok := env[t.text]
			if !ok || !v.valid() {
				return nil, &NameError{Col: t.pos, Name: t.text}
			}
			t = term{kind: termValue, pos: t.pos, val: v}
		case termGroup:
			sub, err := resolve(t.sub, env, prec)
			if err != nil {
				return nil, err
			}
			t.sub = sub
		}
		out[i] = t
	}
	return out, nil
}

// number converts a numeric literal. Integer literals are converted exactly
// where the precision allows.
func number(t term, prec uint) (*big.Float, error) {
	if n, ok := new(big.Int).SetString(t.text, 10); ok {
		return new(big.Float).SetPrec(prec).SetInt(n), nil
	}
	r, _, err := new(big.Float).SetPrec(prec).Parse(t.text, 10)
	switch {
	case err == nil:
		return r, nil
	case err.Error() == "exponent overflow",
		strings.HasSuffix(err.Error(), ": value out of range"):
		// There isn't realistically any better way to detect this error.
		return new(big.Float).SetPrec(prec).SetInf(false), nil
	default:
		return nil, &LexError{Text: t.text, Kind: "number", Col: t.pos}
	}
}

// normalize rewrites each unary minus into a multiplication by -1, or into a
// negated constant when its operand is a constant. Nested sequences are
// normalized first, and parenthesized single operands are unwrapped. The
// result is checked to alternate operands and operators.
func normalize(seq []term, prec uint) ([]term, error) {
	in := make([]term, len(seq))
	for i, t := range seq {
		if t.kind == termGroup {
			sub, err := normalize(t.sub, prec)
			if err != nil {
				return nil, err
			}
			if len(sub) == 1 {
				t = sub[0]
			} else {
				t.sub = sub
			}
		}
		in[i] = t
	}
	out := make([]term, 0, len(in))
	for i := 0; i < len(in); i++ {
		t := in[i]
		if t.kind != termOp || t.op != OpSub || (i > 0 && in[i-1].isOperand()) {
			out = append(out, t)
			continue
		}
		// Unary minus. Its operand is consumed with it.
		if i+1 >= len(in) {
			return nil, &StructureError{Col: t.pos, Seq: "- with no operand"}
		}
		x := in[i+1]
		if !x.isOperand() {
			return nil, &OperatorError{Col: x.pos, Token: x.op.Symbol(), Unary: true}
		}
		out = append(out, negate(x, t.pos, prec))
		i++
	}
	if err := checkseq(out); err != nil {
		return nil, err
	}
	return out, nil
}

// negate produces the negation of an operand.
func negate(t term, pos int, prec uint) term {
	if t.kind == termValue && t.val.IsConst() {
		x := new(big.Float).SetPrec(prec).Neg(t.val.Const())
		return term{kind: termValue, pos: pos, val: Const(x)}
	}
	m := new(big.Float).SetPrec(prec).SetInt64(-1)
	return term{
		kind: termGroup,
		pos:  pos,
		sub: []term{
			{kind: termValue, pos: pos, val: Const(m)},
			{kind: termOp, pos: pos, op: OpMul},
			t,
		},
	}
}

// checkseq verifies that a sequence alternates operands and operators,
// starting and ending with an operand.
func checkseq(seq []term) error {
	if len(seq) == 0 {
		return &EmptyExpressionError{}
	}
	for i, t := range seq {
		switch {
		case i%2 == 0 && !t.isOperand():
			return &OperatorError{Col: t.pos, Token: t.op.Symbol(), Unary: true}
		case i%2 == 1 && t.isOperand():
			var b strings.Builder
			t.fmt(&b, false)
			return &OperatorError{Col: t.pos, Token: b.String()}
		}
	}
	if len(seq)%2 == 0 {
		last := seq[len(seq)-1]
		return &StructureError{Col: last.pos, Seq: last.op.Symbol() + " with no right operand"}
	}
	return nil
}
