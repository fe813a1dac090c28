package types

const (
	NO_PAGINATION uint64 = 0

	// Max automatic requeue attempts before Flush gives up on a row.
	MAX_RETRY_TIMES = 3
)
