package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/daniacca/fluidnet/internal/fluid"
)

type seedDeposit struct {
	Container string  `json:"container"`
	Type      string  `json:"type"`
	Mass      float64 `json:"mass"`
}

func main() {
	var (
		networkFile = flag.String("network-file", "", "path to network config JSON file (required)")
		ticks       = flag.Int("ticks", 100, "number of ticks to run")
		seedFile    = flag.String("seed", "", "path to seed deposits JSON file (optional)")
		snapshotOut = flag.String("snapshot-out", "", "directory to write a final snapshot to (optional)")
	)
	flag.Parse()

	if *networkFile == "" {
		fmt.Fprintf(os.Stderr, "error: --network-file is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// Load, validate and build the network
	cfg, n, err := loadNetworkFromFile(*networkFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading network: %v\n", err)
		os.Exit(1)
	}

	// Load extra seed deposits if provided
	if *seedFile != "" {
		if err := loadSeedDeposits(n, *seedFile); err != nil {
			fmt.Fprintf(os.Stderr, "error loading seed deposits: %v\n", err)
			os.Exit(1)
		}
	}

	// Run simulation
	for i := 0; i < *ticks; i++ {
		n.Step()
	}

	// Print summary
	printSummary(cfg.Name, *ticks, n)

	if *snapshotOut != "" {
		path, err := fluid.WriteSnapshotFile(*snapshotOut, fluid.TakeSnapshot(n))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", path)
	}
}

func loadNetworkFromFile(path string) (fluid.NetworkConfig, *fluid.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fluid.NetworkConfig{}, nil, fmt.Errorf("reading network file: %w", err)
	}

	var cfg fluid.NetworkConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fluid.NetworkConfig{}, nil, fmt.Errorf("parsing network JSON: %w", err)
	}

	// Validation and assembly both happen in the builder
	n, err := fluid.BuildNetworkFromConfig(cfg, fluid.NewNoOpLogger())
	if err != nil {
		return fluid.NetworkConfig{}, nil, fmt.Errorf("building network: %w", err)
	}

	return cfg, n, nil
}

func loadSeedDeposits(n *fluid.Network, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}

	var seeds []seedDeposit
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parsing seed JSON: %w", err)
	}

	for _, seed := range seeds {
		id, ok := n.ContainerByName(seed.Container)
		if !ok {
			return fmt.Errorf("unknown container %q in seed file", seed.Container)
		}
		ty, ok := n.Registry().Lookup(seed.Type)
		if !ok {
			return fmt.Errorf("unknown fluid type %q in seed file", seed.Type)
		}
		if err := n.Deposit(id, ty, seed.Mass); err != nil {
			return fmt.Errorf("seeding %s into %s: %w", seed.Type, seed.Container, err)
		}
	}

	// Deposits are deferred; flush so the summary of a zero-tick run sees them
	n.Flush()

	return nil
}

func printSummary(networkName string, ticks int, n *fluid.Network) {
	type containerLine struct {
		status fluid.ContainerStatus
	}

	lines := make([]containerLine, 0, n.ContainerCount())
	n.EachContainer(func(_ fluid.ContainerID, st fluid.ContainerStatus) {
		lines = append(lines, containerLine{status: st})
	})

	// Print in a consistent order (sorted by container name)
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].status.Name < lines[j].status.Name
	})

	fmt.Printf("Simulation finished (network=%s, ticks=%d)\n", networkName, ticks)
	fmt.Println("Containers:")

	for _, line := range lines {
		st := line.status
		marker := ""
		if st.Exploded {
			marker = " [EXPLODED]"
		}
		fmt.Printf("  %s: pressure=%.4f volume=%.4f/%.0f%s\n", st.Name, st.Pressure, st.OccupiedVolume, st.MaxVolume, marker)
		for _, el := range st.Elements {
			fmt.Printf("    %s: mass=%.4f volume=%.4f\n", el.Type, el.Mass, el.Volume)
		}
	}
}
