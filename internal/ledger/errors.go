package ledger

import "errors"

// Error kinds surfaced by the engine. Callers classify with errors.Is;
// messages carry the underlying cause.
var (
	// ErrAuthRequired means no access token is available. Fetches are
	// short-circuited before any network call.
	ErrAuthRequired = errors.New("auth token required")

	// ErrSource marks a remote statement fetch failure. The engine
	// never retries; the previous snapshot stays authoritative.
	ErrSource = errors.New("statement source failure")

	// ErrStore marks a cache read/write failure. In-memory state is
	// never assumed persisted unless the write succeeded.
	ErrStore = errors.New("state store failure")

	// ErrEntryNotFound means an edit target does not exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrNoAccount means no synchronized state exists for the account.
	ErrNoAccount = errors.New("no state for account")
)
