package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
)

const (
	historyFile = ".formula_history"
	prompt      = "formula> "
	helpText    = `Enter an expression, or "name := expression" to define a variable.
Commands:
  :graph   Print the node network as YAML
  :vars    List defined variables
  :quit    Exit
`
)

// repl reads expressions interactively until EOF or :quit. It returns the
// process exit code.
func (s *session) repl() int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":quit":
			return 0
		case ":help":
			fmt.Print(helpText)
			continue
		case ":graph":
			if err := s.g.WriteYAML(os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		case ":vars":
			for _, k := range s.names() {
				fmt.Printf("%s = %v\n", k, s.vars[k])
			}
			continue
		}
		ln.AppendHistory(line)
		if err := s.run(os.Stdout, line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (s *session) names() []string {
	r := make([]string, 0, len(s.vars))
	for k := range s.vars {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}
