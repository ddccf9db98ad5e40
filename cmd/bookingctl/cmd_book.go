package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/booking-engine/internal/model"
)

var (
	bookFlags  slotFlags
	bookWorker string
	bookClient model.ClientContact
	bookNotes  string
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Book the best eligible worker, or a named one",
	Long: `Book the best eligible worker for a service and time, or a named one.

Examples:
  bookingctl book --service 3b0c... --date 2024-01-15 --start 10:00 --client-name "Grace"
  bookingctl book --service 3b0c... --date 2024-01-15 --start 10:00 --worker 9d1e... --client-name "Grace"
`,
	RunE: runBook,
}

func init() {
	bookFlags.register(bookCmd)
	bookCmd.Flags().StringVar(&bookWorker, "worker", "", "Book this worker instead of the best match")
	bookCmd.Flags().StringVar(&bookClient.Name, "client-name", "", "Client name")
	bookCmd.Flags().StringVar(&bookClient.Email, "client-email", "", "Client email")
	bookCmd.Flags().StringVar(&bookClient.Phone, "client-phone", "", "Client phone")
	bookCmd.Flags().StringVar(&bookNotes, "notes", "", "Booking notes")
	_ = bookCmd.MarkFlagRequired("client-name")
	rootCmd.AddCommand(bookCmd)
}

func runBook(cmd *cobra.Command, args []string) error {
	serviceID, date, start, err := bookFlags.parse()
	if err != nil {
		return err
	}

	db, engine, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	duration := bookFlags.duration
	if duration == 0 {
		svc, err := engine.Services.GetService(ctx, serviceID)
		if err != nil {
			return err
		}
		duration = svc.Duration
	}

	req := &model.BookingRequest{
		ServiceID:       serviceID,
		Date:            date,
		StartMinute:     start,
		DurationMinutes: duration,
		Client:          bookClient,
		Notes:           bookNotes,
	}
	if bookWorker != "" {
		id, err := uuid.Parse(bookWorker)
		if err != nil {
			return fmt.Errorf("invalid worker id: %w", err)
		}
		req.WorkerID = &id
	}

	result, err := engine.Bookings.Book(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if result.Outcome == model.OutcomeNoEligibleWorker {
		return fmt.Errorf("no eligible worker")
	}
	return nil
}
