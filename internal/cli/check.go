package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/softmatterlab/mdsim/internal/config"
)

// CheckResult summarizes a validated configuration.
type CheckResult struct {
	Name        string `json:"name"`
	Scheme      string `json:"scheme"`
	Particles   int    `json:"particles"`
	Fingerprint string `json:"fingerprint"`
}

func (r CheckResult) String() string {
	return fmt.Sprintf("%s: scheme %s, %d particles, fingerprint %s",
		r.Name, r.Scheme, r.Particles, r.Fingerprint)
}

// NewCheckCommand creates the check command: schema plus semantic
// validation of a configuration without running anything.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <config.yaml>",
		Short: "Validate a simulation configuration",
		Long: `Validate a simulation configuration against the schema and the
semantic rules (propagation combinations, shear geometry, bond
references) and print its content fingerprint.

Example:
  mdsim check ./lj-gas.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			return runCheck(formatter, args[0])
		},
	}
	return cmd
}

func runCheck(formatter *OutputFormatter, path string) error {
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
	// surface semantic errors the schema cannot express
	if _, err := cfg.Params(); err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	hash, err := config.Fingerprint(raw)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "fingerprinting config", err)
	}

	return formatter.Success(CheckResult{
		Name:        cfg.Name,
		Scheme:      cfg.Scheme,
		Particles:   len(cfg.Particles),
		Fingerprint: hash,
	})
}
