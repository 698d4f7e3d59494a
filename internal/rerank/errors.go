package rerank

import "errors"

// ErrParseFailed is returned by parseLLMResponse when every parsing strategy
// fails. It never escapes this package: callers synthesize heuristic results
// instead of surfacing it.
var ErrParseFailed = errors.New("failed to parse rerank response")
