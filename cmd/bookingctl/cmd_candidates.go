package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/booking-engine/internal/interval"
)

type slotFlags struct {
	serviceID string
	date      string
	start     string
	duration  int
}

func (f *slotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.serviceID, "service", "", "Service ID")
	cmd.Flags().StringVar(&f.date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time (HH:MM)")
	cmd.Flags().IntVar(&f.duration, "duration", 0, "Duration in minutes (defaults to the service duration)")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
}

func (f *slotFlags) parse() (uuid.UUID, time.Time, int, error) {
	serviceID, err := uuid.Parse(f.serviceID)
	if err != nil {
		return uuid.Nil, time.Time{}, 0, err
	}
	date, err := interval.ParseDate(f.date)
	if err != nil {
		return uuid.Nil, time.Time{}, 0, err
	}
	start, err := interval.ParseClock(f.start)
	if err != nil {
		return uuid.Nil, time.Time{}, 0, err
	}
	return serviceID, date, start, nil
}

var candidateFlags slotFlags

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List eligible workers for a service and time, ranked by score",
	RunE:  runCandidates,
}

func init() {
	candidateFlags.register(candidatesCmd)
	rootCmd.AddCommand(candidatesCmd)
}

func runCandidates(cmd *cobra.Command, args []string) error {
	serviceID, date, start, err := candidateFlags.parse()
	if err != nil {
		return err
	}

	db, engine, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	duration := candidateFlags.duration
	if duration == 0 {
		svc, err := engine.Services.GetService(ctx, serviceID)
		if err != nil {
			return err
		}
		duration = svc.Duration
	}

	ids, err := engine.Candidates.FindCandidates(ctx, serviceID, date, start, duration)
	if err != nil {
		return err
	}
	ranked, err := engine.Scoring.Rank(ctx, ids, serviceID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}
