package commands

import (
	"fmt"
	"os"

	"courtharvest-backend/lib/serviceutil"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	lookupAddr *string
	statusAddr *string
)

func init() {
	lookupAddr = lookupCmd.Flags().String("addr", "http://localhost:8444", "Address of a running harvesterd.")
	statusAddr = statusCmd.Flags().String("addr", "http://localhost:8444", "Address of a running harvesterd.")
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(statusCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <case number> [--addr <url>]",
	Short: "Looks up the latest scraped hearing for a case number.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var hearing map[string]any
		res, err := resty.New().R().
			SetContext(cmd.Context()).
			SetResult(&hearing).
			Get(*lookupAddr + "/api/hearings/" + args[0])
		if err != nil {
			serviceutil.Fatal("failed to reach harvesterd", err)
		}
		if res.StatusCode() != 200 {
			fmt.Fprintln(os.Stderr, res.String())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Field", "Value"})
		for _, field := range []string{
			"case_number", "case_id", "party_name", "officer",
			"hearing_date", "hearing_time", "location",
		} {
			t.AppendRow(table.Row{field, hearing[field]})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [--addr <url>]",
	Short: "Prints diagnostics for the latest harvest run.",
	Run: func(cmd *cobra.Command, args []string) {
		var run map[string]any
		res, err := resty.New().R().
			SetContext(cmd.Context()).
			SetResult(&run).
			Get(*statusAddr + "/api/runs/latest")
		if err != nil {
			serviceutil.Fatal("failed to reach harvesterd", err)
		}
		if res.StatusCode() != 200 {
			fmt.Fprintln(os.Stderr, res.String())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Field", "Value"})
		for _, field := range []string{
			"run_id", "record_count", "rejection_count", "partition_count",
			"failure_count", "incomplete_count", "complete",
		} {
			t.AppendRow(table.Row{field, run[field]})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
