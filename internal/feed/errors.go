package feed

import "fmt"

// HTTPError reports a feed response outside the 2xx range.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// FormatError reports a body that is neither an RSS nor an Atom document.
type FormatError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecognized feed format at %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("unrecognized feed format at %s: %s", e.URL, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ItemError reports a single feed entry that could not be normalized.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
