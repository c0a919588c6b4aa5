package lsm

import "errors"

// ErrNotOpen is returned by any operation invoked on an Engine that was
// never successfully opened.
var ErrNotOpen = errors.New("lsm: engine not open")

// ErrAlreadyClosed is returned by any operation invoked after Close.
var ErrAlreadyClosed = errors.New("lsm: engine already closed")

// ErrInvalidArgument is returned when a key is empty or contains a byte
// reserved by the WAL line format ("|" or "\n").
var ErrInvalidArgument = errors.New("lsm: invalid argument")
