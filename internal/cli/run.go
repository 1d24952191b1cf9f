package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vendorsync/internal/runner"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage in order",
		Long: `Seed (only when no tracker exists yet), then fetch, normalize and push,
stopping at the first failure. Re-running picks up where the last run
stopped.

Example:
  vendorsync run --config ./vendorsync.yaml
  vendorsync run --output-dir ./out --limit 5 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd, modeStage)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.signalContext(cmd)
			defer cancel()

			summaries, err := s.pipe.RunAll(ctx, s.cfg.SourceFilepath)
			if err != nil {
				if len(summaries) > 0 {
					// Show the progress made before the failure.
					_, _ = cmd.ErrOrStderr().Write([]byte(runSummaries(summaries).String() + "\n"))
				}
				return wrapStageError("run failed", err)
			}
			return formatter(rootOpts, cmd).Success(runSummaries(summaries))
		},
	}
}

type runSummaries []runner.Summary

func (r runSummaries) String() string {
	lines := make([]string, len(r))
	for i, s := range r {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}
