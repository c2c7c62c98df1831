package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/populate/internal/compiler"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading specs from a directory.
type LoadResult struct {
	Spec      *compiler.Spec
	CUEValue  cue.Value // zero when the directory holds only YAML specs
	CUEFiles  []string
	YAMLFiles []string
}

// FileCount is the number of spec files found.
func (r *LoadResult) FileCount() int { return len(r.CUEFiles) + len(r.YAMLFiles) }

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads shape and mapping declarations from a directory. CUE files
// are loaded as one instance; every .yaml or .yml file is parsed on its own.
// Declarations from all files are merged in that order.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, yamlFiles, err := FindSpecFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 && len(yamlFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE or YAML files found in %s", dir)}}
	}

	result := &LoadResult{
		Spec:      &compiler.Spec{},
		CUEFiles:  cueFiles,
		YAMLFiles: yamlFiles,
	}
	var errs []error

	if len(cueFiles) > 0 {
		value, loadErr := buildCUE(dir)
		if loadErr != nil {
			return nil, []error{loadErr}
		}
		result.CUEValue = value

		spec, compileErrs := compiler.CompileSpec(value)
		for _, ce := range compileErrs {
			errs = append(errs, convertCompileError(ce, "cue"))
			if mode == LoadModeFailFast {
				return result, errs
			}
		}
		result.Spec.Merge(spec)
	}

	for _, path := range yamlFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		spec, err := compiler.ParseYAML(data)
		if err != nil {
			loadErr := convertCompileError(err, path)
			loadErr.Message = fmt.Sprintf("%s: %s", filepath.Base(path), loadErr.Message)
			errs = append(errs, loadErr)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Spec.Merge(spec)
	}

	if result.Spec.Empty() && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no shapes or mappings found in specs"})
	}

	return result, errs
}

// buildCUE loads the CUE package in dir and builds its value.
func buildCUE(dir string) (cue.Value, *LoadError) {
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// FindSpecFiles walks the directory and returns the .cue and the .yaml/.yml
// file paths, each in lexical order.
func FindSpecFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
		return nil
	})
	return cueFiles, yamlFiles, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands. Declaration
// problems reuse the compiler's E1xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No spec files found
	ErrCodeLoadFailed  = "E004" // CUE or YAML load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // Database write error

	// Query errors
	ErrCodeInvalidQuery   = "E201" // Query string does not parse
	ErrCodeCompileFailed  = "E202" // Plan could not be built
	ErrCodeExecuteFailed  = "E203" // Plan could not be executed
	ErrCodeInvalidOptions = "E204" // Conflicting or missing flags

	// Harness errors
	ErrCodeTestFailed = "E301" // One or more scenarios failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "yaml":
		return ErrCodeLoadFailed
	case strings.HasSuffix(field, ".name"):
		return compiler.ErrShapeNameRequired
	case strings.HasSuffix(field, ".fields"):
		return compiler.ErrShapeNoFields
	case strings.HasPrefix(field, "shape.") && strings.Contains(field, ".fields."):
		return compiler.ErrInvalidFieldType
	default:
		return ErrCodeGeneric
	}
}
