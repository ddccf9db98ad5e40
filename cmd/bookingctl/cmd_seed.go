package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/booking-engine/internal/seed"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load services, workers and weekly schedules from a YAML file",
	Long: `Load services, workers and weekly schedules from a YAML file.

Examples:
  bookingctl seed --file fixtures/cleaners.yml
`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed YAML file")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	fh, err := os.Open(seedFile)
	if err != nil {
		return err
	}
	defer fh.Close()

	f, err := seed.Load(fh)
	if err != nil {
		return err
	}

	db, engine, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := seed.Apply(cmd.Context(), seed.Stores{
		Services: engine.Services,
		Workers:  engine.Workers,
		Schedule: engine.Availability,
	}, validator.New(), f)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, key := range sortedKeys(res.Services) {
		fmt.Fprintf(out, "service %-20s %s\n", key, res.Services[key])
	}
	for _, name := range sortedKeys(res.Workers) {
		fmt.Fprintf(out, "worker  %-20s %s\n", name, res.Workers[name])
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
