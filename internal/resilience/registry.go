package resilience

import (
	"sort"
	"sync"
)

// ServiceBreakers hands out one Breaker per service name, all sharing a
// config.
type ServiceBreakers struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
	hook     func(service string, from, to CircuitState)
}

// NewServiceBreakers creates an empty registry.
func NewServiceBreakers(cfg CircuitBreakerConfig) *ServiceBreakers {
	return &ServiceBreakers{cfg: cfg, breakers: map[string]*Breaker{}}
}

// OnStateChange installs fn on every breaker, including ones already
// created.
func (sb *ServiceBreakers) OnStateChange(fn func(service string, from, to CircuitState)) *ServiceBreakers {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.hook = fn
	for _, b := range sb.breakers {
		b.mu.Lock()
		b.onChange = fn
		b.mu.Unlock()
	}
	return sb
}

// Get returns the breaker for service, creating it on first use.
func (sb *ServiceBreakers) Get(service string) *Breaker {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	b, ok := sb.breakers[service]
	if !ok {
		b = NewBreaker(service, sb.cfg)
		b.onChange = sb.hook
		sb.breakers[service] = b
	}
	return b
}

// Names lists the services seen so far, sorted.
func (sb *ServiceBreakers) Names() []string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	names := make([]string, 0, len(sb.breakers))
	for name := range sb.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// States snapshots every breaker's state.
func (sb *ServiceBreakers) States() map[string]CircuitState {
	sb.mu.Lock()
	list := make([]*Breaker, 0, len(sb.breakers))
	for _, b := range sb.breakers {
		list = append(list, b)
	}
	sb.mu.Unlock()

	states := make(map[string]CircuitState, len(list))
	for _, b := range list {
		states[b.name] = b.State()
	}
	return states
}
