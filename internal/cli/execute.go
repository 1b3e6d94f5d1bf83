package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func Execute() int {
	opts := &RootOptions{}
	return execute(newRootCmd(opts), opts)
}

// execute runs root and maps its outcome to an exit code. The log sink is
// closed on every path, including failed runs where cobra skips post-run hooks.
func execute(root *cobra.Command, opts *RootOptions) int {
	err := root.Execute()
	defer func() { _ = opts.closeLog() }()

	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	exitErr := NormalizeError(err)
	_ = writeCLIError(root.ErrOrStderr(), exitErr, opts.JSONOutput)
	return exitErr.Code
}

// usageError marks a bad flag, argument or command name as a validation error.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return ExitError{Code: ExitInvalid, Kind: KindValidation, Err: err}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(validate(cmd, args))
	}
}
