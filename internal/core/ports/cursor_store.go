package ports

// CursorStore persists the last processed block or row id of one watcher
// loop so a restart resumes near where it left off. Loss of a cursor only
// causes redundant re-scanning, so implementations are fail-soft: a missing
// entry yields the fallback, never an error.
type CursorStore interface {
	Get(network, account, side string, fallback uint64) uint64
	Set(network, account, side string, value uint64) error
}
