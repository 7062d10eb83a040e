package planner

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// maxTaskListTokens caps the task summary sent with a daily plan request.
const maxTaskListTokens = 1500

// tokenCounter counts prompt tokens with tiktoken, falling back to a
// character heuristic when the BPE tables cannot be loaded (offline).
type tokenCounter struct {
	once    sync.Once
	encoder *tiktoken.Tiktoken
}

func (c *tokenCounter) count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.encoder = enc
		}
	})
	if c.encoder == nil {
		return heuristicTokens(text)
	}
	return len(c.encoder.Encode(text, nil, nil))
}

// heuristicTokens assumes roughly four characters per token.
func heuristicTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return max(n/4, 1)
}
