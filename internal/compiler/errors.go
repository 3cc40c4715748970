package compiler

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Validation error codes (E200-E299). Every one of them blocks compilation.
const (
	ErrInvalidName        = "E201" // empty or non-identifier name
	ErrNoVersions         = "E202" // interface declares no versions
	ErrVersionOrder       = "E203" // malformed, duplicated or unordered version
	ErrInvalidRange       = "E204" // unparsable version range expression
	ErrDuplicateName      = "E205" // duplicate operation or parameter name
	ErrInvalidParamType   = "E206" // unknown parameter type
	ErrInvalidReturnType  = "E207" // unknown return type
	ErrFloatTypeForbidden = "E208" // float types not allowed
	ErrTagCollision       = "E209" // two operations share a wire discriminant
	ErrParamRemoved       = "E210" // parameter removed between adjacent versions
	ErrOperationRemoved   = "E211" // operation removed between adjacent versions
)

// Diagnostic codes (W200-W299). Reported but not fatal unless strict.
const (
	WarnDeadCode = "W201" // constraint satisfied by no declared version
)

// CompileError represents a description load error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// ValidationError represents an interface validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// BuildError aggregates every validation and migration error found while
// compiling one interface.
type BuildError struct {
	Interface string
	Errors    []ValidationError
}

func (e *BuildError) Error() string {
	lines := make([]string, 0, len(e.Errors)+1)
	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}
	lines = append(lines, fmt.Sprintf("interface %s: %d build %s", e.Interface, len(e.Errors), noun))
	for _, ve := range e.Errors {
		lines = append(lines, "  "+ve.Error())
	}
	return strings.Join(lines, "\n")
}

// Codes returns the error codes in report order.
func (e *BuildError) Codes() []string {
	codes := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		codes[i] = ve.Code
	}
	return codes
}

// HasCode reports whether err is a *BuildError containing code.
func HasCode(err error, code string) bool {
	var be *BuildError
	if !errors.As(err, &be) {
		return false
	}
	for _, ve := range be.Errors {
		if ve.Code == code {
			return true
		}
	}
	return false
}
