package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
)

// StdinPath reads the catalog from standard input.
const StdinPath = "-"

type CatalogSource struct {
	Stdin io.Reader
}

func (s CatalogSource) ReadCatalog(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if path == StdinPath {
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read catalog from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return data, nil
}
