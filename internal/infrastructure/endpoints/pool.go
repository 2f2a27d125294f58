package endpoints

import (
	"fmt"
	"sync"
)

// Pool is an ordered list of RPC endpoints with a rotating cursor. On any
// transient failure the caller advances to the next endpoint instead of
// hammering one host; a full rotation without success is an escalation the
// caller detects by counting Len() attempts.
type Pool struct {
	mu        sync.Mutex
	endpoints []string
	current   int
}

func NewPool(endpoints []string) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}
	list := make([]string, len(endpoints))
	copy(list, endpoints)
	return &Pool{endpoints: list}, nil
}

// Endpoint returns the endpoint the cursor points at.
func (p *Pool) Endpoint() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoints[p.current]
}

// Rotate advances the cursor and returns the new endpoint.
func (p *Pool) Rotate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = (p.current + 1) % len(p.endpoints)
	return p.endpoints[p.current]
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// All returns the endpoints in rotation order starting from the cursor.
func (p *Pool) All() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.endpoints))
	for i := range p.endpoints {
		out = append(out, p.endpoints[(p.current+i)%len(p.endpoints)])
	}
	return out
}
