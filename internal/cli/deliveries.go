package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dlvery/internal/delivery/categorize"
	"dlvery/internal/delivery/models"
)

func deliveriesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "deliveries",
		Short: "Delivery list tools",
	}
	c.AddCommand(categorizeCmd())
	return c
}

func categorizeCmd() *cobra.Command {
	var file string
	var at string
	var asJSON bool

	c := &cobra.Command{
		Use:   "categorize",
		Short: "Split a JSON array of deliveries into today and pending buckets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--now must be RFC3339: %w", err)
				}
				now = parsed
			}

			records, err := readDeliveries(file)
			if err != nil {
				return err
			}

			res := categorize.Categorize(categorize.Dedupe(records), now)
			categorize.SortByPriority(res.Today)
			categorize.SortByPriority(res.Pending)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printBuckets(cmd.OutOrStdout(), res, now)
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON array of deliveries (required)")
	c.Flags().StringVar(&at, "now", "", "Reference time in RFC3339 (defaults to the current time)")
	c.Flags().BoolVar(&asJSON, "json", false, "Print buckets as JSON")
	_ = c.MarkFlagRequired("file")
	return c
}

func readDeliveries(path string) ([]models.Delivery, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []models.Delivery
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func printBuckets(w io.Writer, res categorize.Result, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TODAY (%d)\n", len(res.Today))
	for _, d := range res.Today {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", d.Number, d.Priority, d.Status.Display().Label, d.CustomerName)
	}
	fmt.Fprintf(tw, "PENDING (%d)\n", len(res.Pending))
	for _, d := range res.Pending {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", d.Number, d.Priority, categorize.PendingReason(d, now), d.CustomerName)
	}
	if res.Defaulted > 0 {
		fmt.Fprintf(tw, "%d record(s) had no schedule and were placed in today\n", res.Defaulted)
	}
	return tw.Flush()
}
