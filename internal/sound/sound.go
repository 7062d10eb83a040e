package sound

import (
	"io"
	"log"
	"strings"
	"sync"
)

type Cue int

const (
	Start Cue = iota
	End
)

func (c Cue) String() string {
	if c == End {
		return "end"
	}
	return "start"
}

// Player plays short notification cues. Play must not block.
type Player interface {
	Play(Cue)
}

// Bell rings the terminal bell: once when a countdown starts, twice when
// one finishes.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Play(c Cue) {
	rings := 1
	if c == End {
		rings = 2
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, strings.Repeat("\a", rings)); err != nil {
		log.Printf("sound: %s cue: %v", c, err)
	}
}
