package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"argus/core"
	"argus/correlate"
	"argus/narrative"
	"argus/notify"
	"argus/threat"
)

// NewRunCmd builds the one-shot `run` command: a single correlation pass
// without the HTTP server, printing the result to the terminal.
func NewRunCmd() *cobra.Command {
	var (
		windowHours float64
		ruleIDs     []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one correlation pass and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sugar, err := initCLI()
			if err != nil {
				return err
			}

			store, cleanup, err := openStore(cfg, sugar)
			if err != nil {
				return err
			}
			defer cleanup()

			var intel threat.Lookuper
			if cfg.ThreatIntel.Enabled {
				intel = threat.NewClient(cfg, sugar)
			}
			var gen narrative.Generator
			if cfg.Narrative.Enabled {
				gen = narrative.NewClient(cfg, sugar)
			}
			var sink notify.Sink
			if cfg.Notifications.Enabled {
				sink = notify.NewNotifier(cfg, store, sugar)
			}

			engine := correlate.NewEngine(store, intel, gen, sink, cfg, sugar)

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()

			result, err := engine.Run(ctx, correlate.RunParams{
				TimeWindowHours: windowHours,
				RuleIDs:         ruleIDs,
			})
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Correlation run failed: %v\n", err)
				return err
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(result.Incidents)
			}

			printRunResult(result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&windowHours, "window", 0, "time window in hours (0 uses the configured default)")
	cmd.Flags().StringSliceVar(&ruleIDs, "rules", nil, "restrict the run to these rule IDs")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output incidents as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func printRunResult(result *correlate.RunResult) {
	report := result.Report

	headerColor.Println("Correlation run complete")
	fmt.Printf("  incidents found: %d\n", report.IncidentsFound)
	fmt.Printf("  incidents saved: %d\n", report.IncidentsSaved)
	fmt.Printf("  notified:        %d\n", report.Notified)
	if report.NarrativesGenerated > 0 {
		fmt.Printf("  narratives:      %d\n", report.NarrativesGenerated)
	}

	for _, fail := range report.Failed {
		warningColor.Printf("  step %s failed for incident %s: %v\n", fail.Stage, fail.IncidentID, fail.Err)
	}

	if len(result.Incidents) == 0 {
		infoColor.Println("No incidents produced")
		return
	}

	fmt.Println()
	headerColor.Printf("%-9s %-9s %-9s %s\n", "SEVERITY", "FIDELITY", "CONF", "TITLE")
	for _, incident := range result.Incidents {
		line := fmt.Sprintf("%-9s %-9d %-9d %s",
			incident.Severity, incident.FidelityScore, incident.ConfidenceScore,
			truncateColumn(incident.Title, 60))
		switch incident.Severity {
		case core.SeverityCritical:
			errorColor.Println(line)
		case core.SeverityHigh:
			warningColor.Println(line)
		default:
			fmt.Println(line)
		}
	}
}
