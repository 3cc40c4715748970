package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/JayJeyaruban/arrpc/internal/compiler"
	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// LoadMode controls how errors are handled during description loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the interfaces found in a specs directory.
type LoadResult struct {
	Interfaces []*ir.Interface
	Sources    map[string]string // interface name -> file or package it came from
	CUEFiles   []string
	YAMLFiles  []string
}

// LoadError represents an error that occurred while loading descriptions.
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

// Error code constants shared by all CLI commands. Validation failures
// reuse the compiler's E2xx codes and registry conflicts its E4xx codes.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeScanError        = "E002" // Directory scan error
	ErrCodeNoFiles          = "E003" // No description files found
	ErrCodeLoadFailed       = "E004" // CUE load failed
	ErrCodeNotFound         = "E005" // Path not found
	ErrCodeBuildFailed      = "E006" // CUE build failed
	ErrCodeWriteFailed      = "E007" // File write error
	ErrCodeInvalidDesc      = "E008" // Description could not be parsed into an interface
	ErrCodeDuplicate        = "E009" // Interface declared twice
	ErrCodeUnknownInterface = "E010" // --interface names nothing, or is required
	ErrCodeRegistry         = "E011" // Registry could not be opened or queried
	ErrCodeGenerateFailed   = "E012" // Source generation failed
	ErrCodeUnknownVersion   = "E013" // --from names an undeclared version
)

// LoadInterfaces reads every interface description in dir. The CUE files in
// dir form one package whose top-level `interface` struct is compiled; each
// *.yaml or *.yml file holds one interface per document.
func LoadInterfaces(dir string, mode LoadMode) (*LoadResult, []error) {
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

	result := &LoadResult{Sources: make(map[string]string)}
	result.CUEFiles, result.YAMLFiles, err = FindSpecFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(result.CUEFiles) == 0 && len(result.YAMLFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE or YAML files found in %s", dir)}}
	}

	var errs []error
	add := func(iface *ir.Interface, source string) {
		if prev, ok := result.Sources[iface.Name]; ok {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicate,
				Message: fmt.Sprintf("interface %s declared in both %s and %s", iface.Name, prev, source),
			})
			return
		}
		result.Sources[iface.Name] = source
		result.Interfaces = append(result.Interfaces, iface)
	}

	if len(result.CUEFiles) > 0 {
		ifaces, cueErrs := loadCUE(dir)
		for _, err := range cueErrs {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return nil, errs
			}
		}
		for _, iface := range ifaces {
			add(iface, dir)
		}
	}

	for _, path := range result.YAMLFiles {
		ifaces, err := loadYAMLFile(path)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return nil, errs
			}
			continue
		}
		for _, iface := range ifaces {
			add(iface, path)
		}
	}

	if len(result.Interfaces) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no interfaces found in specs"})
	}
	if len(errs) > 0 && mode == LoadModeFailFast {
		return nil, errs[:1]
	}
	return result, errs
}

// Interface picks one loaded interface by name. An empty name is allowed
// only when exactly one interface was loaded.
func (r *LoadResult) Interface(name string) (*ir.Interface, error) {
	if name == "" {
		if len(r.Interfaces) == 1 {
			return r.Interfaces[0], nil
		}
		return nil, &LoadError{
			Code:    ErrCodeUnknownInterface,
			Message: fmt.Sprintf("%d interfaces loaded (%s); choose one with --interface", len(r.Interfaces), strings.Join(r.Names(), ", ")),
		}
	}
	for _, iface := range r.Interfaces {
		if iface.Name == name {
			return iface, nil
		}
	}
	return nil, &LoadError{
		Code:    ErrCodeUnknownInterface,
		Message: fmt.Sprintf("interface %q not found (have %s)", name, strings.Join(r.Names(), ", ")),
	}
}

// Names returns the loaded interface names in load order.
func (r *LoadResult) Names() []string {
	names := make([]string, len(r.Interfaces))
	for i, iface := range r.Interfaces {
		names[i] = iface.Name
	}
	return names
}

// FindSpecFiles returns the CUE and YAML files directly inside dir, sorted.
// Subdirectories are not descended into because CUE loads dir as a single
// package.
func FindSpecFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch filepath.Ext(e.Name()) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
	}
	sort.Strings(cueFiles)
	sort.Strings(yamlFiles)
	return cueFiles, yamlFiles, nil
}

func loadCUE(dir string) ([]*ir.Interface, []error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	ifaces, errs := compiler.CompileInterfaces(value)
	loadErrs := make([]error, len(errs))
	for i, err := range errs {
		loadErrs[i] = convertCompileError(err, "")
	}
	return ifaces, loadErrs
}

func loadYAMLFile(path string) ([]*ir.Interface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	defer f.Close()

	ifaces, err := compiler.LoadYAML(f)
	if err != nil {
		return nil, convertCompileError(err, path)
	}
	return ifaces, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, source string) *LoadError {
	prefix := ""
	if source != "" {
		prefix = source + ": "
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		wrapped := strings.TrimSuffix(err.Error(), compileErr.Error())
		return &LoadError{
			Code:    ErrCodeInvalidDesc,
			Message: prefix + wrapped + compileErr.Field + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeInvalidDesc,
		Message: prefix + err.Error(),
	}
}
