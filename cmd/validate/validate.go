// Package validate implements the workbook validation subcommand.
package validate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/asmavensocial/installation-dashbaord/internal/conf"
	"github.com/asmavensocial/installation-dashbaord/internal/drivelink"
	"github.com/asmavensocial/installation-dashbaord/internal/errors"
	"github.com/asmavensocial/installation-dashbaord/internal/survey"
)

// Command creates the validate subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the survey workbook",
		Long:  "Load the survey workbook, check the expected columns and print deployment KPIs without starting the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(settings)
		},
	}
}

func runValidate(settings *conf.Settings) error {
	records, err := survey.Load(settings.Source.Spreadsheet, settings.Source.Sheet)
	if err != nil {
		var missing *survey.MissingColumnsError
		if errors.As(err, &missing) {
			fmt.Fprintf(os.Stderr, "❌ Workbook is missing expected columns:\n")
			for _, col := range missing.Missing {
				fmt.Fprintf(os.Stderr, "  - %q", col)
				if hints := missing.Suggestions[col]; len(hints) > 0 {
					fmt.Fprintf(os.Stderr, " (did you mean %q?)", hints[0])
				}
				fmt.Fprintln(os.Stderr)
			}
			return errors.NewStd("column validation failed")
		}
		return err
	}

	summary := survey.Summarize(records)
	fmt.Printf("✅ Workbook loaded: %s\n", settings.Source.Spreadsheet)
	fmt.Printf("   Total stores:  %d\n", summary.TotalStores)
	fmt.Printf("   Deployed:      %d\n", summary.Deployed)
	fmt.Printf("   Not deployed:  %d\n", summary.NotDeployed)

	normalizer := drivelink.New(settings.Dashboard.Thumbnails.Width)
	total, resolvable := 0, 0
	for i := range records {
		for _, slot := range records[i].ImageSlots() {
			if slot.Raw == "" {
				continue
			}
			total++
			if _, ok := normalizer.Normalize(slot.Raw); ok {
				resolvable++
			}
		}
	}
	fmt.Printf("   Image links:   %d submitted, %d resolvable\n", total, resolvable)

	if details := survey.NotDeployedDetails(records); len(details) > 0 {
		fmt.Println("\nStores pending deployment:")
		for _, d := range details {
			fmt.Printf("  - %s (%s, %s): %s\n", d.StoreName, d.City, d.Zone, d.Reason)
		}
	}

	return nil
}
