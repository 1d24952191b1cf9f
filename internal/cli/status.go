package cli

import (
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-code progress",
		Long: `Report how far every code has progressed, derived from the tracker
markers, plus snapshot payload counts. Only the output directory is required
and no lock is taken, so status can run alongside a stage.

Example:
  vendorsync status --output-dir ./out --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd, modeReadOnly)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := s.pipe.Status(cmd.Context())
			if err != nil {
				return wrapStageError("status failed", err)
			}
			return formatter(rootOpts, cmd).Success(report)
		},
	}
}
