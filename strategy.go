package boundcache

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects which entry is evicted when a manager needs room.
// The set is closed; any other value is rejected at configuration time.
type Strategy int

const (
	// StrategyLRU evicts the entry whose last access is oldest.
	StrategyLRU Strategy = iota
	// StrategyLFU evicts the entry with the fewest successful reads.
	StrategyLFU
	// StrategySize evicts the largest entry.
	StrategySize
	// StrategyPriority evicts the entry with the lowest caller priority.
	StrategyPriority
	// StrategyCombined evicts the entry with the lowest priority*accessCount/size.
	StrategyCombined
)

var strategyNames = [...]string{
	StrategyLRU:      "lru",
	StrategyLFU:      "lfu",
	StrategySize:     "size",
	StrategyPriority: "priority",
	StrategyCombined: "combined",
}

// Strategies returns every supported strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{StrategyLRU, StrategyLFU, StrategySize, StrategyPriority, StrategyCombined}
}

// ParseStrategy returns the strategy with the given name (case-insensitive).
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for s, sn := range strategyNames {
		if sn == n {
			return Strategy(s), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Valid reports whether s is one of the supported strategies.
func (s Strategy) Valid() bool {
	return s >= StrategyLRU && s <= StrategyCombined
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
	return []byte(strategyNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Describe returns the scoring rule of s in words.
func (s Strategy) Describe() string {
	switch s {
	case StrategyLRU:
		return "evicts the least recently accessed entry"
	case StrategyLFU:
		return "evicts the least frequently accessed entry"
	case StrategySize:
		return "evicts the largest entry"
	case StrategyPriority:
		return "evicts the lowest priority entry"
	case StrategyCombined:
		return "evicts the lowest priority*accesses/size entry"
	default:
		return "unknown"
	}
}

// score computes the eviction score of e at now. Which end of the scale is
// evicted first is decided by worse.
//
// LRU scores by negated idle time rather than by the raw access timestamp:
// the ordering is identical and the value stays exact in a float64.
func (s Strategy) score(lastAccessedAt time.Time, accessCount, size int64, priority int, now time.Time) float64 {
	switch s {
	case StrategyLRU:
		return -float64(now.Sub(lastAccessedAt))
	case StrategyLFU:
		return float64(accessCount)
	case StrategySize:
		return float64(size)
	case StrategyPriority:
		return float64(priority)
	case StrategyCombined:
		return float64(priority) * float64(accessCount) / float64(max(size, 1))
	default:
		return 0
	}
}

// worse reports whether score a marks a better eviction candidate than b.
func (s Strategy) worse(a, b float64) bool {
	if s == StrategySize {
		return a > b
	}
	return a < b
}
