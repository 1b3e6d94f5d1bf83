package docprov

import "github.com/osvaldoandrade/docprov/internal/cli"

// Execute runs the docprov CLI entrypoint.
func Execute() int {
	return cli.Execute()
}
