package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/villagemud/lua-runtime/runtime"
)

// scenario describes a scripted world: scripts to load, threads to spawn
// and how many scheduler ticks to drive them for. Threads are pumped
// round-robin, one pump each per tick, so a busy thread cannot starve
// the others.
type scenario struct {
	Scripts   []string    `yaml:"scripts"`
	Libraries []string    `yaml:"libraries"`
	Quantum   int         `yaml:"quantum"`
	Ticks     int         `yaml:"ticks"`
	Spawns    []spawnSpec `yaml:"spawns"`
}

type spawnSpec struct {
	Function string `yaml:"function"`
	Quantum  int    `yaml:"quantum"`
	Args     []any  `yaml:"args"`
}

const defaultTicks = 100

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Scripts) == 0 {
		return nil, fmt.Errorf("scenario lists no scripts")
	}
	if len(sc.Spawns) == 0 {
		return nil, fmt.Errorf("scenario lists no spawns")
	}
	if sc.Ticks <= 0 {
		sc.Ticks = defaultTicks
	}
	return &sc, nil
}

func runScenario(path string) error {
	sc, err := loadScenario(path)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var opts []runtime.Option
	if len(sc.Libraries) > 0 {
		opts = append(opts, runtime.WithLibraries(sc.Libraries...))
	}
	if sc.Quantum > 0 {
		opts = append(opts, runtime.WithQuantum(sc.Quantum))
	}
	rt, err := runtime.New(opts...)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	for _, script := range sc.Scripts {
		if err := rt.LoadFile(ctx, script); err != nil {
			return fmt.Errorf("load %s: %w", script, err)
		}
	}

	threads := make([]*runtime.Thread, 0, len(sc.Spawns))
	for _, spec := range sc.Spawns {
		var spawnOpts []runtime.SpawnOption
		if spec.Quantum > 0 {
			spawnOpts = append(spawnOpts, runtime.SpawnWithQuantum(spec.Quantum))
		}
		if len(spec.Args) > 0 {
			spawnOpts = append(spawnOpts, runtime.SpawnWithArgs(spec.Args...))
		}
		th, err := rt.Spawn(spec.Function, spawnOpts...)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", spec.Function, err)
		}
		threads = append(threads, th)
		fmt.Printf("spawned %s (%s, quantum %d)\n", spec.Function, th.ID(), th.Quantum())
	}

	for tick := 1; tick <= sc.Ticks; tick++ {
		live := 0
		for _, th := range threads {
			if th.Status() != runtime.StateSuspended {
				continue
			}
			live++
			st, err := th.Pump(ctx)
			switch st {
			case runtime.StateDead:
				fmt.Printf("tick %d: %s finished\n", tick, th.Name())
			case runtime.StateError:
				fmt.Printf("tick %d: %s failed: %v\n", tick, th.Name(), err)
			}
		}
		if live == 0 {
			break
		}
	}

	fmt.Printf("\nFinal states:\n")
	for _, th := range threads {
		line := fmt.Sprintf("  %s: %s", th.Name(), th.Status())
		if th.Status() == runtime.StateDead {
			if vals, err := th.Values(); err == nil && len(vals) > 0 {
				line += fmt.Sprintf(" %v", vals)
			}
		}
		fmt.Println(line)
	}
	return nil
}
