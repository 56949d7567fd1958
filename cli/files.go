package cli

import (
	"io/fs"
	"path/filepath"
)

// ExpandPaths flattens the sender's arguments into an ordered list of file
// paths: plain files pass through, directories are walked recursively in
// lexical order. Separators are normalized to forward slashes so a Windows
// sender's paths do not turn into backslash-laden file names on a Linux
// receiver.
func ExpandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				paths = append(paths, filepath.ToSlash(path))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}
