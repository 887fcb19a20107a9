package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

type options struct {
	entry       string
	inputPath   string
	outputPath  string
	invocations uint32
	quiet       bool
	width       int
}

// version returns the module version from build info.
func version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

func rootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "spirvrun [flags] <module.spv>",
		Short:         "Execute a SPIR-V module entry point against external inputs",
		Args:          cobra.ExactArgs(1),
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.entry, "entry", "e", "", "entry point name (default: the module's only one)")
	cmd.Flags().StringVarP(&opts.inputPath, "in", "i", "", "YAML/JSON document binding input variables (and spec constants) by name")
	cmd.Flags().StringVarP(&opts.outputPath, "out", "o", "", "write outputs to this file instead of stdout")
	cmd.Flags().Uint32VarP(&opts.invocations, "invocations", "n", 1, "number of workgroup invocations to run")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress warnings")
	cmd.Flags().IntVar(&opts.width, "width", 0, "wrap diagnostics at this column (default: 80)")
	return cmd
}
