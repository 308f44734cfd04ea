package syntax

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	// matchLimit caps in-flight query matches per cursor. Patterns that
	// blow past it are silently dropped, which bounds memory on files a
	// grammar handles badly.
	matchLimit = 256

	// cancellationCheckInterval is how many highlight iterations pass
	// between reads of the cancellation flag.
	cancellationCheckInterval = 100
)

// Parsers and query cursors are expensive to create and trivially reusable,
// so both are pooled for the life of the process.
var (
	parserPool = sync.Pool{
		New: func() any {
			return tree_sitter.NewParser()
		},
	}
	cursorPool = sync.Pool{
		New: func() any {
			return tree_sitter.NewQueryCursor()
		},
	}
)

func acquireParser() *tree_sitter.Parser {
	return parserPool.Get().(*tree_sitter.Parser)
}

func releaseParser(p *tree_sitter.Parser) {
	parserPool.Put(p)
}

// acquireCursor hands out a cursor with the byte range and match limit reset,
// since the previous user may have narrowed either.
func acquireCursor() *tree_sitter.QueryCursor {
	c := cursorPool.Get().(*tree_sitter.QueryCursor)
	c.SetByteRange(0, maxUint)
	c.SetMatchLimit(matchLimit)
	return c
}

func releaseCursor(c *tree_sitter.QueryCursor) {
	cursorPool.Put(c)
}
