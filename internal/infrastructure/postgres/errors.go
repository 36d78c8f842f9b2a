package postgres

import (
	"github.com/oksasatya/go-user-service/internal/domain/repository"
)

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return "postgres " + e.op + ": " + e.err.Error() }

func (e *opError) Unwrap() []error { return []error{repository.ErrStore, e.err} }

// storeErr tags err as a store failure while keeping the driver error in the chain.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}
