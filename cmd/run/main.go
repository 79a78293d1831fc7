package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/villagemud/lua-runtime/runtime"
)

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to Lua script")
		configFile  = flag.String("config", "", "Path to scenario YAML file")
		funcName    = flag.String("func", "", "Function to drive as a thread (optional)")
		strArg      = flag.String("arg", "", "String argument to pass")
		libsStr     = flag.String("libs", "", "Stdlib modules to open (comma-separated, e.g. base,string,math)")
		quantum     = flag.Int("quantum", 0, "Step budget per pump (default 10)")
		maxPumps    = flag.Int("max-pumps", 1000, "Pump limit before giving up on a thread")
		list        = flag.Bool("list", false, "List global functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *configFile != "" {
		if err := runScenario(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *scriptFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -script <file.lua> [-func name] [-arg string] [-libs base,math,...]")
		fmt.Fprintln(os.Stderr, "       run -script <file.lua> -list")
		fmt.Fprintln(os.Stderr, "       run -script <file.lua> -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       run -config <scenario.yaml>")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*scriptFile, splitList(*libsStr), *quantum); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*scriptFile, *funcName, *strArg, *libsStr, *quantum, *maxPumps, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func newRuntime(libsStr string, quantum int) (*runtime.Runtime, error) {
	var opts []runtime.Option
	if libs := splitList(libsStr); len(libs) > 0 {
		opts = append(opts, runtime.WithLibraries(libs...))
	}
	if quantum > 0 {
		opts = append(opts, runtime.WithQuantum(quantum))
	}
	return runtime.New(opts...)
}

func run(scriptFile, funcName, strArg, libsStr string, quantum, maxPumps int, listOnly bool) error {
	ctx := context.Background()

	rt, err := newRuntime(libsStr, quantum)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	if err := rt.LoadFile(ctx, scriptFile); err != nil {
		return fmt.Errorf("load script: %w", err)
	}

	funcs := rt.Functions()
	fmt.Printf("Script: %s\n", scriptFile)
	fmt.Printf("Global functions:\n")
	for _, name := range funcs {
		fmt.Printf("  %s\n", name)
	}

	if listOnly {
		return nil
	}

	// If no function specified, try common entry points
	if funcName == "" {
		for _, candidate := range []string{"main", "run", "tick"} {
			for _, f := range funcs {
				if f == candidate {
					funcName = candidate
					break
				}
			}
			if funcName != "" {
				break
			}
		}
		if funcName == "" && len(funcs) == 1 {
			funcName = funcs[0]
		}
		if funcName == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -func to specify a function to drive.\n")
			return nil
		}
	}

	var spawnOpts []runtime.SpawnOption
	if strArg != "" {
		spawnOpts = append(spawnOpts, runtime.SpawnWithArgs(strArg))
	}
	th, err := rt.Spawn(funcName, spawnOpts...)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", funcName, err)
	}

	fmt.Printf("\nDriving %s (quantum %d)...\n", funcName, th.Quantum())
	pumps := 0
	for {
		if pumps >= maxPumps {
			fmt.Printf("Still %s after %d pumps, giving up.\n", th.Status(), pumps)
			return nil
		}
		st, err := th.Pump(ctx)
		pumps++
		if err != nil {
			return fmt.Errorf("pump %d: %w", pumps, err)
		}
		if st == runtime.StateDead {
			break
		}
	}

	fmt.Printf("Finished after %d pump(s).\n", pumps)
	vals, err := th.Values()
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		fmt.Printf("Result: %v\n", vals)
	}
	return nil
}
