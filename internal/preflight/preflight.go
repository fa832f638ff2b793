// Package preflight verifies that every input file and external tool a run
// depends on is present before any analysis starts.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/multierr"
)

// ErrMissing marks a file or tool that does not exist.
var ErrMissing = errors.New("missing")

// Input is one file the run reads, named by its role.
type Input struct {
	Role string
	Path string
}

// Report is the outcome of an input check.
type Report struct {
	// Unavailable lists optional inputs that were named but could not be
	// used. They do not fail the run.
	Unavailable []Input
}

// CheckInputs verifies that every required input is a readable regular file.
// All failures are combined into one error. Optional inputs with an empty
// path are ignored; unusable ones are listed in the report instead.
func CheckInputs(required, optional []Input) (Report, error) {
	var err error
	for _, in := range required {
		if in.Path == "" {
			err = multierr.Append(err, fmt.Errorf("%s: no path given: %w", in.Role, ErrMissing))
			continue
		}
		err = multierr.Append(err, checkFile(in))
	}

	var rep Report
	for _, in := range optional {
		if in.Path == "" {
			continue
		}
		if checkFile(in) != nil {
			rep.Unavailable = append(rep.Unavailable, in)
		}
	}
	return rep, err
}

func checkFile(in Input) error {
	if in.Path == "-" {
		return nil
	}
	info, err := os.Stat(in.Path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", in.Role, in.Path, ErrMissing)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", in.Role, in.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s %s: is a directory", in.Role, in.Path)
	}
	f, err := os.Open(in.Path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", in.Role, in.Path, err)
	}
	return f.Close()
}

// CheckTools verifies that each named external tool path is an executable
// file. The error names every failing tool.
func CheckTools(tools map[string]string) error {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var err error
	for _, name := range names {
		err = multierr.Append(err, checkTool(name, tools[name]))
	}
	return err
}

func checkTool(name, path string) error {
	if path == "" {
		return fmt.Errorf("tool %s: no path configured: %w", name, ErrMissing)
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tool %s at %s: %w", name, path, ErrMissing)
	}
	if err != nil {
		return fmt.Errorf("tool %s at %s: %w", name, path, err)
	}
	if info.IsDir() || info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("tool %s at %s: not executable", name, path)
	}
	return nil
}

// Errors splits an aggregated error into its parts.
func Errors(err error) []error {
	return multierr.Errors(err)
}
