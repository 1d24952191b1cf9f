package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/vendorsync/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigFile string
	LogJSON    bool

	viper *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// configFlags maps configuration keys to the persistent flags that set them.
var configFlags = map[string]string{
	config.KeySourceFilepath: "source",
	config.KeyOutputDirpath:  "output-dir",
	config.KeyAPIURLRoot:     "api-url",
	config.KeyAPIKey:         "api-key",
	config.KeyBackend:        "backend",
	config.KeyLimit:          "limit",
	config.KeyHTTPTimeout:    "http-timeout",
}

// NewRootCommand creates the root command for the vendorsync CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{viper: config.New()}

	cmd := &cobra.Command{
		Use:   "vendorsync",
		Short: "vendorsync - resumable vendor record sync",
		Long: `Synchronize vendor records with the Alma acquisitions API in four
resumable stages: seed, fetch, normalize, push.

Every stage can be interrupted and re-run; completed work is never repeated.
Configuration comes from flags, ALMA_VENDOR__* environment variables or a
config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return config.BindFlags(opts.viper, cmd.Flags(), configFlags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (per-key debug logs)")
	pf.StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")
	pf.BoolVar(&opts.LogJSON, "log-json", false, "write logs as JSON lines")

	pf.String("source", "", "source code list ("+config.EnvName(config.KeySourceFilepath)+")")
	pf.String("output-dir", "", "directory for tracker and snapshots ("+config.EnvName(config.KeyOutputDirpath)+")")
	pf.String("api-url", "", "vendor API root URL ("+config.EnvName(config.KeyAPIURLRoot)+")")
	pf.String("api-key", "", "vendor API key ("+config.EnvName(config.KeyAPIKey)+")")
	pf.String("backend", "file", "checkpoint backend (file|sqlite)")
	pf.Int("limit", 0, "process at most this many keys per stage (0 = all)")
	pf.Duration("http-timeout", 0, "per-request timeout (0 = none)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewStageCommand(opts, stageFetch))
	cmd.AddCommand(NewStageCommand(opts, stageNormalize))
	cmd.AddCommand(NewStageCommand(opts, stagePush))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd, opts
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
