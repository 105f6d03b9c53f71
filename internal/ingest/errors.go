package ingest

import "errors"

// ErrIngestionFailed indicates the external inventory could not be read.
// The engine treats this as terminal for the request.
var ErrIngestionFailed = errors.New("ingest: ingestion failed")
