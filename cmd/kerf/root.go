package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is the kerf release.
const Version = "0.1.0"

// errScriptFailed is returned after the report of a failed script has been
// written, so the process exits non-zero without repeating the errors.
var errScriptFailed = errors.New("script failed")

// options holds the persistent flags shared by every subcommand.
type options struct {
	configFile     string
	tolerance      float64
	angleTolerance float64
	verbose        bool

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "kerf",
		Short: "A NURBS and analytic-curve geometry kernel.",
		Long: `kerf evaluates Lisp scripts that build curves and surfaces and query
them: evaluation, curvature, intersection, containment and self-intersection.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.startup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&o.configFile, "config", "", "configuration file location (TOML)")
	root.PersistentFlags().Float64Var(&o.tolerance, "tolerance", 0, "distance tolerance, overriding the configuration")
	root.PersistentFlags().Float64Var(&o.angleTolerance, "angle-tolerance", 0, "angle tolerance, overriding the configuration")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log kernel detail to stderr")

	root.AddCommand(newEvalCmd(o), newConfigCmd(o), newVersionCmd())
	return root
}

// startup installs the logger and resolves the configuration: defaults, then
// the file, then flags.
func (o *options) startup(cmd *cobra.Command) error {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if o.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	diag.SetLogger(log)

	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return err
		}
		log.WithField("file", o.configFile).Debug("loaded configuration")
	}
	flags := cmd.Flags()
	if flags.Changed("tolerance") {
		cfg.Tolerance.Distance = o.tolerance
	}
	if flags.Changed("angle-tolerance") {
		cfg.Tolerance.Angle = o.angleTolerance
	}
	if diags := cfg.Validate(); len(diags) > 0 {
		return fmt.Errorf("config: %w", diags[0])
	}
	o.cfg = cfg
	return nil
}

func newEvalCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <file>",
		Short: "Run a script and print its report as JSON",
		Long: `Run a kerf script and print every query it made, the meshes it built
and any diagnostics as JSON. Use - to read the script from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			result := NewApp(o.cfg).Evaluate(source)
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.OK() {
				return errScriptFailed
			}
			return nil
		},
	}
}

func newConfigCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(o.cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kerf",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kerf v%s\n", Version)
		},
	}
}

func readSource(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("eval: %w", err)
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
