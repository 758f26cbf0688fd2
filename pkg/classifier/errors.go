package classifier

import "errors"

// ErrInvalidPattern is returned by New when an ignore pattern is not a
// valid regular expression.
var ErrInvalidPattern = errors.New("invalid ignore pattern")
