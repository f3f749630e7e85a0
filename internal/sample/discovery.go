package sample

import "log/slog"

// DiscoveryConfig controls early stopping of data generation once new
// strategies stop appearing.
type DiscoveryConfig struct {
	// Enabled controls whether saturation detection is active.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Patience is the number of consecutive observations without a new
	// strategy before the stream counts as saturated.
	Patience int `yaml:"patience,omitempty" json:"patience,omitempty"`

	// MinSamples is the minimum number of observations before
	// saturation may be reported, regardless of patience.
	MinSamples int `yaml:"min_samples,omitempty" json:"min_samples,omitempty"`
}

// DefaultDiscoveryConfig returns the defaults used by adaptive sampling.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Enabled:    true,
		Patience:   25,
		MinSamples: 50,
	}
}

// DisabledDiscoveryConfig returns a config that never reports saturation.
func DisabledDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{Enabled: false}
}

// Discovery tracks the strategy keys seen during data generation. It
// reports saturation once no new key has appeared for Patience
// consecutive observations, and estimates the probability of the next
// draw revealing a new strategy via the Good-Turing ratio n1/N.
//
// Statistics are recorded even when saturation detection is disabled,
// so finished runs can still report discovery curves.
type Discovery struct {
	config     DiscoveryConfig
	counts     map[string]int
	total      int
	singletons int
	staleCount int
	saturated  bool
}

// NewDiscovery creates a tracker with the given config.
func NewDiscovery(config DiscoveryConfig) *Discovery {
	return &Discovery{
		config: config,
		counts: make(map[string]int),
	}
}

// Observe records one strategy key and returns true once the stream is
// saturated. Saturation requires detection to be enabled, at least
// MinSamples observations, and Patience consecutive repeats.
func (d *Discovery) Observe(key string) bool {
	d.total++
	d.counts[key]++
	switch d.counts[key] {
	case 1:
		d.singletons++
		d.staleCount = 0
		slog.Debug("new strategy discovered",
			"distinct", len(d.counts),
			"observed", d.total,
		)
	case 2:
		d.singletons--
		d.staleCount++
	default:
		d.staleCount++
	}

	if !d.config.Enabled {
		return false
	}
	if d.total < d.config.MinSamples || d.staleCount < d.config.Patience {
		return false
	}
	if !d.saturated {
		d.saturated = true
		slog.Info("strategy discovery saturated",
			"distinct", len(d.counts),
			"observed", d.total,
			"stale_count", d.staleCount,
			"unseen_mass", d.UnseenMass(),
		)
	}
	return true
}

// Saturated reports whether Observe has detected saturation.
func (d *Discovery) Saturated() bool { return d.saturated }

// Distinct returns the number of distinct strategy keys observed.
func (d *Discovery) Distinct() int { return len(d.counts) }

// Singletons returns the number of keys observed exactly once.
func (d *Discovery) Singletons() int { return d.singletons }

// Total returns the number of observations.
func (d *Discovery) Total() int { return d.total }

// StaleCount returns the current run of observations without a new key.
func (d *Discovery) StaleCount() int { return d.staleCount }

// UnseenMass returns the Good-Turing estimate n1/N of the probability
// mass held by strategies not yet observed. Before any observation it
// is 1: everything is unseen.
func (d *Discovery) UnseenMass() float64 {
	if d.total == 0 {
		return 1
	}
	return float64(d.singletons) / float64(d.total)
}

// Reset clears the tracker's state.
func (d *Discovery) Reset() {
	d.counts = make(map[string]int)
	d.total = 0
	d.singletons = 0
	d.staleCount = 0
	d.saturated = false
}
