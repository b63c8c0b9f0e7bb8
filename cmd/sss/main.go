package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"
	"github.com/peterh/liner"

	sss "go.sss.dev/pkg"
)

const (
	usage       = "usage: sss [-h] [script.sss [arg ...]]"
	historyFile = ".sss_history"
	prompt      = "sss> "
)

var errColor = color.New(color.FgRed)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	opts, optind, err := getopt.Getopts(args, "h")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	for _, opt := range opts {
		switch opt.Option {
		case 'h':
			fmt.Println(usage)
			return 0
		}
	}

	rest := args[optind:]

	cwd, err := os.Getwd()
	if err != nil {
		errColor.Fprintln(os.Stderr, err)
		return 1
	}

	if len(rest) == 0 {
		return repl(cwd)
	}

	ip := sss.NewInterpreter()
	ip.Dir = cwd
	ip.Args = rest[1:]

	compileErrs, runErr := ip.RunFile(rest[0])
	return report(compileErrs, runErr)
}

func report(compileErrs []sss.CompileError, runErr error) int {
	for _, cerr := range compileErrs {
		errColor.Fprintln(os.Stderr, cerr.String())
	}

	if runErr != nil {
		errColor.Fprintln(os.Stderr, runErr.Error())
	}

	if len(compileErrs) != 0 || runErr != nil {
		return 1
	}

	return 0
}

func repl(cwd string) int {
	fmt.Println("sss interactive shell. Ctrl+D or :quit to exit.")

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

	sess := sss.NewSession(cwd, nil, os.Stdout)
	defer sess.Close()

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
			errColor.Fprintln(os.Stderr, err)
			return 1
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == ":quit" {
			return 0
		}

		compileErrs, runErr := sess.Eval(line)
		report(compileErrs, runErr)

		ln.AppendHistory(line)
	}
}
