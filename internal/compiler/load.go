package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
)

// ErrUnsupportedFormat is returned for files that are neither scripts nor CUE.
var ErrUnsupportedFormat = errors.New("unsupported fixture format")

// Fixture file extensions.
const (
	ExtScript = ".js"
	ExtCUE    = ".cue"
)

// IsFixtureFile reports whether path has a fixture extension.
func IsFixtureFile(path string) bool {
	switch filepath.Ext(path) {
	case ExtScript, ExtCUE:
		return true
	}
	return false
}

// LoadFile reads a fixture from a script or a CUE document. The fixture is
// named after the file unless the CUE document carries a name field. The
// result has not been validated as a whole.
//
// Scripts honour mode; a CUE document stops at its first error.
func LoadFile(path string, mode script.LoadMode) (*ir.Fixture, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("read fixture: %w", err)}
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch filepath.Ext(path) {
	case ExtScript:
		f, errs := script.LoadString(path, string(data), mode)
		if f != nil {
			f.Name = stem
		}
		return f, errs

	case ExtCUE:
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		f, err := CompileCUE(v)
		if err != nil {
			return nil, []error{err}
		}
		if !v.LookupPath(cue.ParsePath("name")).Exists() {
			f.Name = stem
		}
		return f, nil

	default:
		return nil, []error{fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)}
	}
}
