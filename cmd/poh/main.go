// poh runs programs handed over by the external parser as JSON AST
// documents.
//
//	poh run <program.json>     execute (VM backend by default)
//	poh repl                   interactive session, one JSON doc per line
//	poh disasm <program.json>  compile and print the bytecode listing
//	poh version
//
// An optional poh.yaml picks the backend, trace mode, and history file;
// flags override it. Engine errors print to stderr verbatim and exit
// nonzero.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	poh "github.com/AlhaqGH/PohLang-sub001"
)

func main() {
	configPath := flag.String("config", "poh.yaml", "run configuration file")
	backend := flag.String("backend", "", "execution backend: vm or walker")
	trace := flag.Bool("trace", false, "verbose diagnostics on stderr")
	flag.Parse()

	cfg, err := poh.LoadRunConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *trace {
		cfg.Trace = true
	}
	if cfg.Backend != poh.BackendVM && cfg.Backend != poh.BackendWalker {
		fmt.Fprintf(os.Stderr, "unknown backend %q\n", cfg.Backend)
		os.Exit(1)
	}

	log := newLogger(cfg.Trace)

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}
	switch args[0] {
	case "run":
		if len(args) != 2 {
			usage()
		}
		cmdRun(log, cfg, args[1])
	case "repl":
		cmdRepl(log, cfg)
	case "disasm":
		if len(args) != 2 {
			usage()
		}
		cmdDisasm(args[1])
	case "version":
		fmt.Println("poh " + poh.Version)
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: poh [flags] run <program.json> | repl | disasm <program.json> | version")
	os.Exit(2)
}

func newLogger(trace bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if trace {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func loadProgram(path string) *poh.Program {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	prog, err := poh.DecodeProgram(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}
	return prog
}

func cmdRun(log zerolog.Logger, cfg *poh.RunConfig, path string) {
	prog := loadProgram(path)
	log.Debug().Str("file", path).Str("backend", cfg.Backend).Msg("program loaded")

	ip := poh.NewInterpreter()
	start := time.Now()
	var err error
	if cfg.Backend == poh.BackendWalker {
		err = ip.Execute(prog)
	} else {
		var main *poh.CompiledFun
		main, err = poh.Compile(prog)
		if err == nil {
			err = poh.NewVM(ip).Run(main)
		}
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("run finished")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmdDisasm(path string) {
	prog := loadProgram(path)
	main, err := poh.Compile(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Print(poh.Disassemble(main))
}

// cmdRepl reads one JSON document per line: a {"stmts": ...} document runs
// as a program against the session globals, anything else evaluates as an
// expression and prints its value.
func cmdRepl(log zerolog.Logger, cfg *poh.RunConfig) {
	ip := poh.NewInterpreter()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := cfg.History
	if histPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			histPath = filepath.Join(home, ".poh_history")
		}
	}
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Println("poh " + poh.Version + " (type :quit to exit)")
	for {
		input, err := line.Prompt("poh> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == ":quit" || input == ":q" {
			break
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, `{"stmts"`) {
			prog, err := poh.DecodeProgram([]byte(input))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if err := ip.Execute(prog); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		}
		expr, err := poh.DecodeExpr([]byte(input))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		v, err := ip.EvalExpr(expr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(poh.Render(v))
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		} else {
			log.Warn().Err(err).Msg("could not save history")
		}
	}
}
