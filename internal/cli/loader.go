package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/clafer/internal/compiler"
	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
)

// Error code constants - unified across all CLI commands.
// Fixture errors keep their own E1xx codes from package ir.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No fixture files found
	ErrCodeParseFailed = "E004" // Script syntax error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE document malformed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeComments    = "E008" // Rewrite would drop comments
)

// LoadError represents a command-level error while locating fixtures.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadedFixture is one fixture file after loading and validation.
type LoadedFixture struct {
	Path    string
	Fixture *ir.Fixture // nil if the file did not parse
	Errors  []compiler.ValidationError
}

// Valid reports whether the fixture loaded and validated cleanly.
func (l LoadedFixture) Valid() bool {
	return l.Fixture != nil && len(l.Errors) == 0
}

// LoadFixture loads a fixture file and validates it as a whole. Load
// errors come first in Errors, followed by validation errors.
func LoadFixture(path string, mode script.LoadMode) LoadedFixture {
	f, loadErrs := compiler.LoadFile(path, mode)
	out := LoadedFixture{Path: path, Fixture: f}
	for _, err := range loadErrs {
		out.Errors = append(out.Errors, convertLoadError(err))
	}
	if f != nil {
		out.Errors = append(out.Errors, compiler.Validate(f)...)
	}
	return out
}

// convertLoadError converts a load error to a ValidationError with position info.
func convertLoadError(err error) compiler.ValidationError {
	var stmtErr *script.StatementError
	var parseErr *script.ParseError
	var compileErr *compiler.CompileError

	switch {
	case errors.As(err, &stmtErr):
		return compiler.ValidationError{
			Field:   stmtErr.Kind.String(),
			Message: stmtErr.Err.Error(),
			Code:    codeOr(err, ErrCodeGeneric),
			Line:    stmtErr.Pos.Line,
			Err:     err,
		}
	case errors.As(err, &parseErr):
		return compiler.ValidationError{
			Field:   "syntax",
			Message: parseErr.Message,
			Code:    ErrCodeParseFailed,
			Line:    parseErr.Pos.Line,
			Err:     err,
		}
	case errors.As(err, &compileErr):
		line := 0
		if compileErr.Pos.IsValid() {
			line = compileErr.Pos.Line()
		}
		return compiler.ValidationError{
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Code:    codeOr(err, ErrCodeBuildFailed),
			Line:    line,
			Err:     err,
		}
	case errors.Is(err, fs.ErrNotExist):
		return compiler.ValidationError{Field: "file", Message: err.Error(), Code: ErrCodeNotFound, Err: err}
	default:
		return compiler.ValidationError{Field: "file", Message: err.Error(), Code: ErrCodeGeneric, Err: err}
	}
}

func codeOr(err error, fallback string) string {
	if code := ir.CodeOf(err); code != "" {
		return code
	}
	return fallback
}

// CollectFixtureFiles expands the given paths into fixture files. Files are
// taken as given; directories are walked for .js and .cue files.
func CollectFixtureFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := FindFixtureFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no fixture files found"}
	}
	return files, nil
}

// FindFixtureFiles walks the directory and returns all fixture paths, sorted.
func FindFixtureFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && compiler.IsFixtureFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// loadErrorExit turns a LoadError into the matching command error.
func loadErrorExit(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Error())
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
}
