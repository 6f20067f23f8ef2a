package stats

import "errors"

// ErrMalformedPayload is returned when a thread payload does not have the
// shape of a Reddit thread. No partial result accompanies it.
var ErrMalformedPayload = errors.New("malformed thread payload")
