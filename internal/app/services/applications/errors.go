package applications

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed storage errors.
var (
	ErrStorageRead  = errors.New("storage read failed")
	ErrStorageWrite = errors.New("storage write failed")
)

// StorageReadError reports that the collection could not be loaded: the
// document is missing, unreadable or malformed.
type StorageReadError struct {
	Op  string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("%s: failed to read data: %v", e.Op, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

func (e *StorageReadError) Is(target error) bool { return target == ErrStorageRead }

// StorageWriteError reports that the collection could not be replaced. The
// mutation that triggered the write is not committed.
type StorageWriteError struct {
	Op  string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("%s: failed to write data: %v", e.Op, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

func (e *StorageWriteError) Is(target error) bool { return target == ErrStorageWrite }
