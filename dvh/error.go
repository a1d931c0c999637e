package dvh

import "errors"

// Sentinel errors matching the boundary error taxonomy: each has a fixed,
// human-readable string and no parameters.
var (
	ErrNoVolumeHeader    = errors.New("no volume header")
	ErrBadVolumeHeader   = errors.New("bad volume header")
	ErrIsISO9660         = errors.New("is iso9660")
	ErrPartitionNotFound = errors.New("partition not found")
	ErrNoSuchEntry       = errors.New("no such entry")
	ErrReadFailure       = errors.New("read failure")
)
