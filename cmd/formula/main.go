package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zephyrtronium/formula"
	"github.com/zephyrtronium/formula/nodegraph"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var (
		inname, verb, varsname string
		given, inputs          []string
		nl, graph, verbose     bool
		interactive            bool
		prec                   uint
	)
	flag.StringVar(&inname, "in", "", "input file (default stdin if no args given)")
	flag.StringVar(&verb, "fmt", "%g", "constant result formatting string")
	flag.StringVar(&varsname, "vars", "", "YAML file of variable definitions")
	flag.Func("given", "name=value constant definition (any number of times)", func(s string) error {
		given = append(given, s)
		return nil
	})
	flag.Func("input", "name[:shape][=v1,v2,...] runtime input definition (any number of times)", func(s string) error {
		inputs = append(inputs, s)
		return nil
	})
	flag.UintVar(&prec, "p", formula.DefaultPrec, "precision of constants in bits")
	flag.BoolVar(&nl, "n", false, "parse separate input lines as separate expressions")
	flag.BoolVar(&graph, "graph", false, "print the node network as YAML")
	flag.BoolVar(&verbose, "v", false, "log each compilation pass")
	flag.BoolVar(&interactive, "i", false, "read expressions interactively")
	flag.Parse()
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	s := session{
		g:    nodegraph.New(),
		vars: formula.Bindings{},
		data: map[string]nodegraph.Data{},
		verb: verb + "\n",
		opts: []formula.ParseOption{formula.Prec(prec), formula.Logger(log.Logger)},
	}
	if varsname != "" {
		f, err := os.Open(varsname)
		if err != nil {
			log.Fatal().Err(err).Msg("opening vars file")
		}
		err = s.load(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("file", varsname).Msg("loading vars file")
		}
	}
	for _, d := range given {
		if err := s.given(d); err != nil {
			log.Fatal().Err(err).Msg("bad -given")
		}
	}
	for _, d := range inputs {
		if err := s.input(d); err != nil {
			log.Fatal().Err(err).Msg("bad -input")
		}
	}

	if interactive {
		os.Exit(s.repl())
	}

	var srcs []string
	f, err := infile(inname, flag.NArg() == 0)
	if err != nil {
		log.Fatal().Err(err).Msg("opening input")
	}
	if f != nil {
		r, err := readall(f, nl)
		if err != nil {
			log.Fatal().Err(err).Msg("reading input")
		}
		srcs = append(srcs, r...)
	}
	srcs = append(srcs, flag.Args()...)

	code := 0
	for _, src := range srcs {
		if err := s.run(os.Stdout, src); err != nil {
			fmt.Println(err)
			code = 1
		}
	}
	if graph {
		if err := s.g.WriteYAML(os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("writing graph")
		}
	}
	os.Exit(code)
}

func infile(inname string, std bool) (io.Reader, error) {
	switch {
	case inname != "" && inname != "-":
		return os.Open(inname)
	case inname == "-", std:
		return os.Stdin, nil
	}
	return nil, nil
}

// readall reads either one expression or one expression per non-blank line.
func readall(r io.Reader, lines bool) ([]string, error) {
	if !lines {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(string(b)) == "" {
			return nil, nil
		}
		return []string{string(b)}, nil
	}
	var srcs []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		srcs = append(srcs, sc.Text())
	}
	return srcs, sc.Err()
}
