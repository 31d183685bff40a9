package offlinecache

import "fmt"

// PrecacheError reports the first precache manifest URL that could not be
// fetched and stored during install. The whole install fails with it; no
// partially populated generation is ever signaled ready.
type PrecacheError struct {
	URL    string
	Status int   // set when the origin answered with a non-200 status
	Err    error // set when the fetch or store operation itself failed
}

func (e *PrecacheError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precache %q: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("precache %q: unexpected status %d", e.URL, e.Status)
}

func (e *PrecacheError) Unwrap() error { return e.Err }
