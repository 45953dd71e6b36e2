package formula

import (
	"github.com/rs/zerolog"
)

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	precopt uint
	logopt  struct {
		log zerolog.Logger
	}
)

// DefaultPrec is the precision of constants when no Prec option is given.
const DefaultPrec = 64

// parsectx holds general data for one call to Parse. It is also a
// ParseOption.
type parsectx struct {
	// prec is the precision in bits of folded constants.
	prec uint
	// log receives debug events for each pass, fold, and materialization.
	log zerolog.Logger
}

func defaultctx() parsectx {
	return parsectx{prec: DefaultPrec, log: zerolog.Nop()}
}

// Prec sets the precision in bits of numeric literals, builtin constants, and
// folded results. A precision of 0 selects DefaultPrec.
func Prec(prec uint) ParseOption {
	return precopt(prec)
}

func (o precopt) parseOption(p parsectx) parsectx {
	p.prec = uint(o)
	if p.prec == 0 {
		p.prec = DefaultPrec
	}
	return p
}

// Logger sets a logger to receive debug events describing each compilation
// pass. By default, nothing is logged.
func Logger(log zerolog.Logger) ParseOption {
	return &logopt{log}
}

func (o *logopt) parseOption(p parsectx) parsectx {
	p.log = o.log
	return p
}

// ParsingPreset combines options so that they can be applied at once to many
// calls to Parse. Options applied after a preset override it.
func ParsingPreset(opts ...ParseOption) ParseOption {
	p := defaultctx()
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	return &p
}

func (o *parsectx) parseOption(p parsectx) parsectx {
	return *o
}
