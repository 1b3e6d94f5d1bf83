package main

import (
	"os"

	"github.com/osvaldoandrade/docprov/pkg/docprov"
)

func main() {
	os.Exit(docprov.Execute())
}
