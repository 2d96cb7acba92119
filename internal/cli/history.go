package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/softmatterlab/mdsim/internal/config"
	"github.com/softmatterlab/mdsim/internal/runlog"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Config   string
	Limit    int
}

// HistoryEntry is one ledger row in the command output.
type HistoryEntry struct {
	Token          string  `json:"token"`
	ConfigName     string  `json:"config_name"`
	ConfigHash     string  `json:"config_hash"`
	Scheme         string  `json:"scheme"`
	StepsRequested int     `json:"steps_requested"`
	StepsCompleted int     `json:"steps_completed"`
	Status         string  `json:"status"`
	VerletReuse    float64 `json:"verlet_reuse"`
	StartedAt      string  `json:"started_at"`
}

// HistoryResult is the run ledger listing.
type HistoryResult struct {
	Runs []HistoryEntry `json:"runs"`
}

func (r HistoryResult) String() string {
	if len(r.Runs) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "%s  %-12s %-16s %6d/%-6d %s\n",
			run.StartedAt, run.Status, run.ConfigName,
			run.StepsCompleted, run.StepsRequested, run.Token)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewHistoryCommand creates the history command: list recorded runs,
// optionally filtered to one configuration's fingerprint.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs from the ledger",
		Long: `List runs recorded in the run ledger, newest first.

With --config, only runs whose configuration fingerprint matches the
given file are listed.

Example:
  mdsim history --db ./runs.db
  mdsim history --db ./runs.db --config ./lj-gas.yaml --limit 10`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			return runHistory(opts, formatter, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the run ledger database (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "filter to runs of this configuration file")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, formatter *OutputFormatter, cmd *cobra.Command) error {
	var hash string
	if opts.Config != "" {
		raw, err := os.ReadFile(opts.Config)
		if err != nil {
			formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "reading config", err)
		}
		if hash, err = config.Fingerprint(raw); err != nil {
			formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "fingerprinting config", err)
		}
	}

	ledger, err := runlog.Open(opts.Database)
	if err != nil {
		formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening run ledger", err)
	}
	defer ledger.Close()

	runs, err := ledger.List(cmd.Context(), hash, opts.Limit)
	if err != nil {
		formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	result := HistoryResult{Runs: make([]HistoryEntry, 0, len(runs))}
	for _, r := range runs {
		result.Runs = append(result.Runs, HistoryEntry{
			Token:          r.Token,
			ConfigName:     r.ConfigName,
			ConfigHash:     r.ConfigHash,
			Scheme:         r.Scheme,
			StepsRequested: r.StepsRequested,
			StepsCompleted: r.StepsCompleted,
			Status:         r.Status,
			VerletReuse:    r.VerletReuse,
			StartedAt:      r.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return formatter.Success(result)
}
