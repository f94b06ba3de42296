// Package fault classifies terminating errors so one top-level handler can report them.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindUsage
	KindConfig
	KindLaunch
	KindConnection
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindConfig:
		return "config"
	case KindLaunch:
		return "launch"
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error tags an underlying error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func Usage(err error) error      { return wrap(KindUsage, err) }
func Config(err error) error     { return wrap(KindConfig, err) }
func Launch(err error) error     { return wrap(KindLaunch, err) }
func Connection(err error) error { return wrap(KindConnection, err) }
func Protocol(err error) error   { return wrap(KindProtocol, err) }

// Usagef builds a usage error from a format string.
func Usagef(format string, args ...any) error {
	return Usage(fmt.Errorf(format, args...))
}

// KindOf returns the outermost Kind attached to err.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case KindOf(err) == KindUsage:
		return 2
	default:
		return 1
	}
}
