package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/vendorsync/internal/pipeline"
	"github.com/roach88/vendorsync/internal/runner"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the tracker from the source code list",
		Long: `Read the comma-separated vendor code list and create the tracker with
one empty record per code. At least 6 codes are required.

Seed runs once per output directory; a second seed fails and leaves the
existing tracker untouched.

Example:
  vendorsync seed --source ./codes.txt --output-dir ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd, modeStage)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.signalContext(cmd)
			defer cancel()

			res, err := s.pipe.SeedFromFile(ctx, s.cfg.SourceFilepath)
			if err != nil {
				return wrapStageError("seed failed", err)
			}
			return formatter(rootOpts, cmd).Success(res)
		},
	}
}

type stageCommand struct {
	name  string
	short string
	long  string
	run   func(*pipeline.Pipeline, context.Context) (runner.Summary, error)
}

var (
	stageFetch = stageCommand{
		name:  "fetch",
		short: "Fetch the remote record of every seeded code",
		long: `Fetch the current vendor record for every code whose raw snapshot
(raw_code_data) is still empty. Records with an unusual field set are logged
as warnings and kept. The first failed request stops the run.`,
		run: (*pipeline.Pipeline).Fetch,
	}
	stageNormalize = stageCommand{
		name:  "normalize",
		short: "Prefix financial_sys_code in the normalized snapshot",
		long: `Copy each fetched record into the normalized snapshot (updated_data)
and make sure its financial_sys_code starts with "S". Records that already
comply are left alone, so the stage is safe to re-run.`,
		run: (*pipeline.Pipeline).Normalize,
	}
	stagePush = stageCommand{
		name:  "push",
		short: "Write normalized records back to the vendor API",
		long: `PUT every normalized record whose push marker is not yet set. Any
response other than 200 stops the run; re-running resumes at the failed code
and never pushes a code twice.`,
		run: (*pipeline.Pipeline).Push,
	}
)

// NewStageCommand creates the command for one of fetch, normalize or push.
func NewStageCommand(rootOpts *RootOptions, stage stageCommand) *cobra.Command {
	return &cobra.Command{
		Use:   stage.name,
		Short: stage.short,
		Long:  stage.long + "\n\nExample:\n  vendorsync " + stage.name + " --output-dir ./out --limit 10",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd, modeStage)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.signalContext(cmd)
			defer cancel()

			sum, err := stage.run(s.pipe, ctx)
			if err != nil {
				return wrapStageError(stage.name+" failed", err)
			}
			return formatter(rootOpts, cmd).Success(sum)
		},
	}
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
