package journal

import "errors"

var (
	// ErrJobNotFound indicates no job exists for the given id.
	ErrJobNotFound = errors.New("journal: job not found")

	// ErrNilJob indicates a nil job was passed to Put.
	ErrNilJob = errors.New("journal: job is nil")

	// ErrJobClosed indicates the job already reached a terminal status.
	ErrJobClosed = errors.New("journal: job already finished")

	// ErrNotResumable indicates the job has no signed chain to resume.
	ErrNotResumable = errors.New("journal: job cannot be resumed")

	// ErrOutOfOrder indicates a broadcast was recorded out of chain order.
	ErrOutOfOrder = errors.New("journal: broadcast recorded out of order")
)
