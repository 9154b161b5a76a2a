package closeline

import "log"

// CloseLine is a line of closers run at shutdown. Closers run newest first,
// the same order defer would use, so a component added after the things it
// depends on is closed before them.
type CloseLine struct {
	closers []func()
}

// Add adds a closer to the close line.
func (c *CloseLine) Add(closer func()) {
	c.closers = append(c.closers, closer)
}

// AddE adds a closer that can fail. Its error is logged, not returned.
func (c *CloseLine) AddE(name string, closeWithError func() error) {
	c.closers = append(c.closers, func() {
		if err := closeWithError(); err != nil {
			log.Printf("closing %s: %v", name, err)
		}
	})
}

// Close runs all the closers and removes them. It is safe to call more than once.
func (c *CloseLine) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if f := c.closers[i]; f != nil {
			f()
		}
	}
	c.closers = nil
}
