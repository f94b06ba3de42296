package dispatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

var ErrNoFiles = errors.New("no files given")

// ResolveFiles makes every argument absolute and expands directories into
// their regular files, recursively and in lexical order.
func ResolveFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, ErrNoFiles
	}

	var out []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", arg, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", arg, err)
		}
		if !info.IsDir() {
			out = append(out, abs)
			continue
		}

		var found []string
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read directory %q: %w", arg, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}

	if len(out) == 0 {
		return nil, ErrNoFiles
	}
	return out, nil
}
