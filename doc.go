// Package formula compiles infix formulas into networks of computation nodes.
//
// A formula is written much like arithmetic in a note: "1 / (e^(x^2))".
// Operators are, from most to least binding, distance ~, power ^, * and /,
// + and -, and the comparisons = != > >= < <=. Operators in the same tier
// associate left to right, so "2^3^2" is "(2^3)^2". A minus with no left
// operand negates what follows it, binding more tightly than any operator:
// "-2^2" is 4.
//
// Variables are bound per compilation to Values, which are either constants
// or Handles to results that are only known at runtime. Operations on
// constants are folded while compiling. Every other operation is handed to a
// Backend, which builds whatever computes it and returns a Handle for the
// result. The package nodegraph provides a Backend which builds an in-memory
// network of utility nodes.
//
// The one intentional inconsistency between folding and materializing is the
// distance operator: over two constants it folds to their product, while a
// backend measures the distance between points or matrices.
package formula
