package chain

import (
	"context"
	"sync"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

// Summary counts the payloads recorded by a collector.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Filtered int `json:"filtered"`
	Failed   int `json:"failed"`
}

// Collector is the terminal unit of a chain. It records every payload it is
// given, including empty and failed ones. Execute is safe for concurrent use.
type Collector struct {
	name    string
	mu      sync.Mutex
	results []*Payload
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{name: "collector"}
}

func (c *Collector) Name() string             { return c.name }
func (c *Collector) InputCategory() Category  { return CategoryAny }
func (c *Collector) OutputCategory() Category { return CategoryAny }

// Execute records p and returns it unchanged.
func (c *Collector) Execute(_ context.Context, p *Payload) (*Payload, error) {
	if p == nil {
		return nil, mcerrors.InvalidInput(c.name)
	}
	c.mu.Lock()
	c.results = append(c.results, p)
	c.mu.Unlock()
	return p, nil
}

// Result returns the recorded payloads. The slice is a copy; the payloads are not.
func (c *Collector) Result() []*Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Payload, len(c.results))
	copy(out, c.results)
	return out
}

// Len returns the number of recorded payloads.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Reset discards all recorded payloads.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.results = nil
	c.mu.Unlock()
}

// Summary counts passed, filtered and failed payloads.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summarize(c.results)
}

// Summarize counts passed, filtered and failed payloads in results.
func Summarize(results []*Payload) Summary {
	s := Summary{Total: len(results)}
	for _, p := range results {
		switch {
		case p.Failed():
			s.Failed++
		case p.Empty():
			s.Filtered++
		default:
			s.Passed++
		}
	}
	return s
}
