package dedupe

import "errors"

// ErrEmptyInput is returned when primary selection or merging is asked to
// work on zero leads.
var ErrEmptyInput = errors.New("dedupe: empty input")
