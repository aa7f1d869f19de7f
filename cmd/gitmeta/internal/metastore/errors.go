package metastore

import (
	"errors"
	"fmt"
)

// Structural errors. They abort an action before anything is modified.
var (
	ErrStoreMissing       = errors.New("store file does not exist")
	ErrStoreUnreadable    = errors.New("store file is not readable")
	ErrMalformedHeader    = errors.New("store file header is malformed")
	ErrForeignProducer    = errors.New("store file was not generated by " + Producer)
	ErrUnsupportedVersion = errors.New("store file schema version is not supported")
	ErrDirtyTree          = errors.New("working tree has uncommitted changes")
	ErrFieldsOverride     = errors.New("fields cannot be overridden when updating; they are inherited from the store")
	ErrUnknownField       = errors.New("unknown field")
	ErrUnsorted           = errors.New("records are not in ascending path order")
)

// ParseError reports a record line that cannot be decoded.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("store line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
