package zotero

import "errors"

var (
	// ErrSourceUnavailable means the Zotero database file is missing or is
	// not a database with the expected schema. This is the only error that
	// aborts a whole migration run.
	ErrSourceUnavailable = errors.New("zotero database unavailable")

	// ErrMalformedRecord means one item row could not be turned into a
	// Record. The item is skipped and the run continues.
	ErrMalformedRecord = errors.New("malformed item")
)
