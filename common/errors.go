package common

import "errors"

var (
	ErrNotFound    = errors.New("no such file or directory")
	ErrExists      = errors.New("file exists")
	ErrNoSpace     = errors.New("no space left on device")
	ErrTooManyOpen = errors.New("too many open files")
	ErrNotDir      = errors.New("not a directory")
	ErrIsDir       = errors.New("is a directory")
	ErrNotEmpty    = errors.New("directory not empty")
	ErrInvalidName = errors.New("invalid name")
	ErrBadHandle   = errors.New("bad file handle")
	ErrBusy        = errors.New("file is open")
	ErrCorrupt     = errors.New("file system inconsistent")
)
