package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/softmatterlab/mdsim/internal/config"
	"github.com/softmatterlab/mdsim/internal/integrator"
	"github.com/softmatterlab/mdsim/internal/runlog"
	"github.com/softmatterlab/mdsim/internal/system"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Steps    int
	Reuse    string

	// Tokens overrides the run token generator (for testing). Nil defaults
	// to UUIDv7.
	Tokens integrator.TokenGenerator
}

// RunReport is the result payload of one run command.
type RunReport struct {
	Token          string  `json:"token"`
	Status         string  `json:"status"`
	StepsRequested int     `json:"steps_requested"`
	StepsCompleted int     `json:"steps_completed"`
	SimTime        float64 `json:"sim_time"`
	VerletReuse    float64 `json:"verlet_reuse"`
	Samples        int     `json:"samples,omitempty"`
}

func (r RunReport) String() string {
	return fmt.Sprintf("run %s: %s, %d/%d steps, t=%g, verlet reuse %.2f",
		r.Token, r.Status, r.StepsCompleted, r.StepsRequested, r.SimTime, r.VerletReuse)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a simulation from a configuration file",
		Long: `Build the system described by the configuration and integrate it.

The requested step count comes from run.steps in the configuration
unless overridden with --steps. With --db the run is appended to the
run ledger. Ctrl-C interrupts at the next step boundary; particle state
stays consistent and the partial step count is reported.

Example:
  mdsim run ./lj-gas.yaml
  mdsim run ./lj-gas.yaml --steps 5000 --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the run ledger database")
	cmd.Flags().IntVar(&opts.Steps, "steps", -1, "override run.steps from the configuration")
	cmd.Flags().StringVar(&opts.Reuse, "reuse-forces", "", "override run.reuse_forces (never|conditionally|always)")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading config", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	hash, err := config.Fingerprint(raw)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "fingerprinting config", err)
	}

	params, err := cfg.Params()
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	sys, err := system.Build(params)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "building system", err)
	}

	steps := cfg.Run.Steps
	if opts.Steps >= 0 {
		steps = opts.Steps
	}
	reuseSetting := cfg.Run.ReuseForces
	if opts.Reuse != "" {
		reuseSetting = opts.Reuse
	}
	reuse, err := config.ParseReusePolicy(reuseSetting)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	var ledger *runlog.Log
	if opts.Database != "" {
		ledger, err = runlog.Open(opts.Database)
		if err != nil {
			formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening run ledger", err)
		}
		defer func() {
			if closeErr := ledger.Close(); closeErr != nil {
				slog.Error("closing run ledger", "error", closeErr)
			}
		}()
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = integrator.UUIDv7Generator{}
	}
	token := tokens.Generate()
	// log lines and the ledger record must share one token
	sys.Integrator.SetTokenGenerator(integrator.StaticGenerator{Token: token})

	// Ctrl-C raises the latch; the scheduler honors it at the next step
	// boundary.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, interrupting at next step boundary", "signal", sig)
			sys.Integrator.Latch().Request()
		case <-done:
		}
	}()

	slog.Info("starting simulation",
		"config", cfg.Name, "hash", hash, "steps", steps, "scheme", cfg.Scheme)
	started := time.Now()
	res, err := sys.Integrator.IntegrateWithAccumulators(steps, reuse, true)
	finished := time.Now()
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "running simulation", err)
	}

	if ledger != nil {
		record := runlog.Record{
			Token:          token,
			ConfigName:     cfg.Name,
			ConfigHash:     hash,
			Scheme:         cfg.Scheme,
			StepsRequested: steps,
			StepsCompleted: res.Steps,
			Status:         res.Status.String(),
			VerletReuse:    sys.Context.VerletReuse(),
			StartedAt:      started,
			FinishedAt:     finished,
		}
		if err := ledger.Append(cmd.Context(), record); err != nil {
			formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "recording run", err)
		}
	}

	report := RunReport{
		Token:          token,
		Status:         res.Status.String(),
		StepsRequested: steps,
		StepsCompleted: res.Steps,
		SimTime:        sys.Context.Time(),
		VerletReuse:    sys.Context.VerletReuse(),
	}
	if sys.KineticEnergy != nil {
		report.Samples = len(sys.KineticEnergy.Values)
	}

	if res.Status != integrator.StatusOK {
		formatter.Error(ErrCodeRun, report.String(), report)
		return WrapExitError(ExitFailure, "run aborted", fmt.Errorf("status %s", res.Status))
	}
	return formatter.Success(report)
}
