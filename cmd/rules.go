// Package cmd provides the command-line interface for the Argus
// correlation service: rule pack management and one-shot runs.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"argus/bootstrap"
	"argus/config"
	"argus/core"
	"argus/storage"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

var (
	outputJSON bool
	noColor    bool
)

const (
	maxImportFileSize = 10 * 1024 * 1024
	cliTimeout        = 2 * time.Minute
)

// rulePack is the YAML document accepted by `rules import`.
type rulePack struct {
	Rules []core.CorrelationRule `yaml:"rules"`
}

// NewRulesCmd builds the `rules` command tree.
func NewRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage correlation rules",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rulesCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON")
	rulesCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rulesCmd.AddCommand(newImportCmd())
	rulesCmd.AddCommand(newListCmd())
	return rulesCmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import a YAML rule pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := loadRulePack(args[0])
			if err != nil {
				return err
			}

			cfg, sugar, err := initCLI()
			if err != nil {
				return err
			}
			store, cleanup, err := openStore(cfg, sugar)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()

			imported, skipped := 0, 0
			for i := range pack.Rules {
				rule := &pack.Rules[i]
				if rule.ID == "" {
					rule.ID = uuid.NewString()
				}
				if err := rule.Validate(); err != nil {
					warningColor.Fprintf(os.Stderr, "Skipping invalid rule %q: %v\n", rule.Name, err)
					skipped++
					continue
				}
				if err := store.UpsertCorrelationRule(ctx, rule); err != nil {
					return fmt.Errorf("failed to import rule %s: %w", rule.ID, err)
				}
				imported++
			}

			successColor.Printf("Imported %d rules", imported)
			if skipped > 0 {
				warningColor.Printf(" (%d skipped)", skipped)
			}
			fmt.Println()
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enabled correlation rules",
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

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()

			rules, err := store.GetEnabledCorrelationRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(rules)
			}

			headerColor.Printf("%-38s %-40s %-10s %s\n", "ID", "NAME", "PRIORITY", "TRIGGERS")
			for _, rule := range rules {
				fmt.Printf("%-38s %-40s %-10d %d\n",
					rule.ID, truncateColumn(rule.Name, 40), rule.EffectivePriority(), rule.TriggerCount)
			}
			infoColor.Printf("%d rules enabled\n", len(rules))
			return nil
		},
	}
}

func loadRulePack(path string) (*rulePack, error) {
	if strings.Contains(path, "..") {
		return nil, fmt.Errorf("invalid rule pack path: %s", path)
	}

	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read rule pack: %w", err)
	}
	if info.Size() > maxImportFileSize {
		return nil, fmt.Errorf("rule pack exceeds %d bytes", maxImportFileSize)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read rule pack: %w", err)
	}

	var pack rulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("invalid rule pack YAML: %w", err)
	}
	if len(pack.Rules) == 0 {
		return nil, fmt.Errorf("rule pack contains no rules")
	}
	return &pack, nil
}

// initCLI sets up the quiet logger and config used by CLI commands.
func initCLI() (*config.Config, *zap.SugaredLogger, error) {
	_, sugar, err := bootstrap.InitLogger("warn")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := bootstrap.InitConfig(sugar)
	if err != nil {
		return nil, nil, err
	}
	return cfg, sugar, nil
}

func openStore(cfg *config.Config, sugar *zap.SugaredLogger) (*storage.MongoStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	store, err := storage.NewMongoStore(ctx, cfg, sugar)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to storage: %w", err)
	}

	cleanup := func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = store.Close(closeCtx)
	}
	return store, cleanup, nil
}

func truncateColumn(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
