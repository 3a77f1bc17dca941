package librarian

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Store.Get when the key does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed index definition, query or document.
// It is always returned before any store I/O.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func validationErrf(field string, err error, format string, args ...any) error {
	return &ValidationError{field, fmt.Sprintf(format, args...), err}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Error() string {
	var buf strings.Builder
	buf.WriteString("invalid ")
	if e.Field != "" {
		buf.WriteString(e.Field)
	} else {
		buf.WriteString("input")
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// ConfigurationError reports a missing or invalid Config.
type ConfigurationError struct {
	Msg string
}

func configErrf(format string, args ...any) error {
	return &ConfigurationError{fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return "librarian: invalid config: " + e.Msg
}

// StoreError wraps a failure of the underlying Store.
type StoreError struct {
	Op  string
	Key []byte
	Err error
}

func storeErrf(op string, key []byte, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{op, key, err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	var buf strings.Builder
	buf.WriteString("store ")
	buf.WriteString(e.Op)
	if e.Key != nil {
		buf.WriteByte(' ')
		buf.WriteString(hexstr(e.Key))
	}
	buf.WriteString(": ")
	buf.WriteString(e.Err.Error())
	return buf.String()
}

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}
