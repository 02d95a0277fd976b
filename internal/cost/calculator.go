package cost

import "sync"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Places    PlacesRate           `yaml:"places" mapstructure:"places"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// PlacesRate holds Google Places pricing per 1000 requests.
type PlacesRate struct {
	TextSearch   float64 `yaml:"text_search" mapstructure:"text_search"`
	NearbySearch float64 `yaml:"nearby_search" mapstructure:"nearby_search"`
	Details      float64 `yaml:"details" mapstructure:"details"`
}

// PlacesCall names a billed Places request.
type PlacesCall string

// Billed Places request kinds.
const (
	PlacesTextSearch   PlacesCall = "text_search"
	PlacesNearbySearch PlacesCall = "nearby_search"
	PlacesDetails      PlacesCall = "details"
)

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of a Claude API call. Returns 0 for unknown models.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// Places returns the cost of a single Places request.
func (c *Calculator) Places(call PlacesCall) float64 {
	switch call {
	case PlacesTextSearch:
		return c.rates.Places.TextSearch / 1000
	case PlacesNearbySearch:
		return c.rates.Places.NearbySearch / 1000
	case PlacesDetails:
		return c.rates.Places.Details / 1000
	default:
		return 0
	}
}

// DefaultRates returns the default pricing configuration.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Places: PlacesRate{TextSearch: 32.0, NearbySearch: 32.0, Details: 25.0},
	}
}

// Tracker accumulates the spend of one audit. It is safe for concurrent use.
type Tracker struct {
	calc *Calculator

	mu     sync.Mutex
	claude float64
	places float64
}

// NewTracker returns a Tracker pricing calls with calc.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{calc: calc}
}

// AddClaude records one Claude call and returns its cost.
func (t *Tracker) AddClaude(model string, input, output, cacheWrite, cacheRead int) float64 {
	if t == nil || t.calc == nil {
		return 0
	}
	c := t.calc.Claude(model, input, output, cacheWrite, cacheRead)
	t.mu.Lock()
	t.claude += c
	t.mu.Unlock()
	return c
}

// AddPlaces records one Places request.
func (t *Tracker) AddPlaces(call PlacesCall) {
	if t == nil || t.calc == nil {
		return
	}
	c := t.calc.Places(call)
	t.mu.Lock()
	t.places += c
	t.mu.Unlock()
}

// Claude returns the accumulated Claude spend.
func (t *Tracker) Claude() float64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.claude
}

// Total returns the accumulated spend across providers.
func (t *Tracker) Total() float64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.claude + t.places
}
