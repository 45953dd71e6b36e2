package formula

import (
	"errors"
	"math/big"
	"strconv"
)

// Error kinds. Every error returned by Parse matches exactly one of these
// with errors.Is, except errors from the backend, which are wrapped in a
// MaterializeError and match whatever the backend's error matches.
var (
	ErrEmptyExpression     = errors.New("empty expression")
	ErrMalformedExpression = errors.New("malformed expression")
	ErrUndefinedVariable   = errors.New("undefined variable")
	ErrDivisionByZero      = errors.New("division by zero")
	// ErrDomain indicates a constant operand outside the domain of its
	// operator.
	ErrDomain = errors.New("argument outside operator domain")
	// ErrNoBackend indicates that an expression needed a backend to
	// materialize an operation, but none was given.
	ErrNoBackend = errors.New("no backend to materialize operation")
)

// ErrNilBindings is returned by Define when it has nowhere to bind a result.
var ErrNilBindings = errors.New("define with nil bindings")

// OperatorError is an error indicating an operator where an operand was
// expected, or an operand where an operator was expected. It implements
// InputError and matches ErrMalformedExpression.
type OperatorError struct {
	// Col is the position of the offending token.
	Col int
	// Token is the text of the offending token.
	Token string
	// Unary is whether the token was an operator with no left operand.
	Unary bool
}

func (err *OperatorError) Error() string {
	if err.Unary {
		return errpos(err.Col, "operator "+strconv.Quote(err.Token)+" has no left operand")
	}
	return errpos(err.Col, "expected operator, got "+strconv.Quote(err.Token))
}

func (err *OperatorError) Pos() int {
	return err.Col
}

func (err *OperatorError) Unwrap() error {
	return ErrMalformedExpression
}

// BracketError is an error indicating unbalanced parentheses in the input. It
// implements InputError and matches ErrMalformedExpression.
type BracketError struct {
	// Col is the position of the unmatched parenthesis or of the end of input.
	Col int
	// Open is true if the error is an open parenthesis with no close
	// parenthesis.
	Open bool
}

func (err *BracketError) Error() string {
	if err.Open {
		return errpos(err.Col, "open parenthesis with no close parenthesis")
	}
	return errpos(err.Col, "close parenthesis with no open parenthesis")
}

func (err *BracketError) Pos() int {
	return err.Col
}

func (err *BracketError) Unwrap() error {
	return ErrMalformedExpression
}

// StructureError is an error indicating a sequence of terms which cannot be
// reduced to a single value, e.g. an operator with no right operand. It
// implements InputError and matches ErrMalformedExpression.
type StructureError struct {
	// Col is the position of the first token of the sequence.
	Col int
	// Seq is a description of the sequence.
	Seq string
}

func (err *StructureError) Error() string {
	return errpos(err.Col, "cannot reduce "+err.Seq)
}

func (err *StructureError) Pos() int {
	return err.Col
}

func (err *StructureError) Unwrap() error {
	return ErrMalformedExpression
}

// EmptyExpressionError is an error indicating an empty expression or
// parenthesized subexpression. It implements InputError and matches
// ErrEmptyExpression.
type EmptyExpressionError struct {
	// Col is the position of the token that ended the subexpression.
	Col int
	// End is the token that ended the subexpression.
	End string
}

func (err *EmptyExpressionError) Error() string {
	if err.End == "" {
		if err.Col <= 1 {
			return errpos(err.Col, "no expression")
		}
		return errpos(err.Col, "no expression at end")
	}
	return errpos(err.Col, "no expression up to "+strconv.Quote(err.End))
}

func (err *EmptyExpressionError) Pos() int {
	return err.Col
}

func (err *EmptyExpressionError) Unwrap() error {
	return ErrEmptyExpression
}

// NameError is an error from a lookup for a variable that has no binding. It
// implements InputError and matches ErrUndefinedVariable.
type NameError struct {
	// Col is the position of the variable.
	Col int
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return errpos(err.Col, "undefined variable: "+strconv.Quote(err.Name))
}

func (err *NameError) Pos() int {
	return err.Col
}

func (err *NameError) Unwrap() error {
	return ErrUndefinedVariable
}

// DivisionByZeroError is an error from folding a division of two constants
// where the divisor is zero. Divisions involving handles are never checked.
// It implements InputError and matches ErrDivisionByZero.
type DivisionByZeroError struct {
	// Col is the position of the operator.
	Col int
	// X is the dividend.
	X *big.Float
}

func (err *DivisionByZeroError) Error() string {
	return errpos(err.Col, "division by zero: "+err.X.Text('g', -1)+" / 0")
}

func (err *DivisionByZeroError) Pos() int {
	return err.Col
}

func (err *DivisionByZeroError) Unwrap() error {
	return ErrDivisionByZero
}

// DomainError is an error returned when folding an operator over constants
// outside its domain. It implements InputError and matches ErrDomain.
type DomainError struct {
	// Col is the position of the operator.
	Col int
	// X is the out-of-domain argument.
	X *big.Float
	// Arg is the 1-based index of the argument.
	Arg int
	// Op is the operator.
	Op Op
}

func (err *DomainError) Error() string {
	r := err.X.Text('g', -1) + " outside domain of " + err.Op.String()
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return errpos(err.Col, r)
}

func (err *DomainError) Pos() int {
	return err.Col
}

func (err *DomainError) Unwrap() error {
	return ErrDomain
}

// MaterializeError wraps an error from a backend.
type MaterializeError struct {
	// Col is the position of the operator.
	Col int
	// Op is the operator the backend was asked to materialize.
	Op Op
	// Err is the backend's error.
	Err error
}

func (err *MaterializeError) Error() string {
	return errpos(err.Col, "materializing "+err.Op.String()+": "+err.Err.Error())
}

func (err *MaterializeError) Pos() int {
	return err.Col
}

func (err *MaterializeError) Unwrap() error {
	return err.Err
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*OperatorError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*StructureError)(nil)
	_ InputError = (*EmptyExpressionError)(nil)
	_ InputError = (*NameError)(nil)
	_ InputError = (*DivisionByZeroError)(nil)
	_ InputError = (*DomainError)(nil)
	_ InputError = (*MaterializeError)(nil)
	_ InputError = (*LexError)(nil)
)
