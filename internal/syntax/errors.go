package syntax

import "errors"

// ==================== Errors ====================

// ErrCancelled is returned when parsing was interrupted, either by the
// cancellation flag or by exceeding the parse timeout. The tree kept by the
// affected layer is unchanged.
var ErrCancelled = errors.New("syntax: parsing cancelled")

// ErrInvalidLanguage is returned when a grammar cannot be assigned to the
// parser, usually because it was compiled against an incompatible ABI.
var ErrInvalidLanguage = errors.New("syntax: invalid language")

// ErrInvalidRanges is returned when a layer's included ranges are rejected
// by the parser. Ranges must be ordered and must not overlap.
var ErrInvalidRanges = errors.New("syntax: invalid included ranges")
