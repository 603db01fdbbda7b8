package generation

import (
	"fmt"
	"unicode/utf8"
)

// Stage identifies where a generation call failed
type Stage string

const (
	StageProvider Stage = "provider"
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
)

const excerptLength = 200

// Error is returned by every Gateway operation that fails. Cause carries a
// short excerpt of the raw provider output for parse and validate failures.
type Error struct {
	Op    string
	Stage Stage
	Cause string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("generation failed: %s (%s)", e.Op, e.Stage)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Cause != "" {
		msg += fmt.Sprintf(" [output: %q]", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func excerpt(raw string) string {
	if utf8.RuneCountInString(raw) <= excerptLength {
		return raw
	}
	runes := []rune(raw)
	return string(runes[:excerptLength]) + "..."
}
