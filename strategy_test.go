package boundcache

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"lru", StrategyLRU, false},
		{"LFU", StrategyLFU, false},
		{" size ", StrategySize, false},
		{"priority", StrategyPriority, false},
		{"combined", StrategyCombined, false},
		{"fifo", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Errorf("ParseStrategy(%q) error = %v, want ErrUnknownStrategy", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStrategy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStrategy_StringRoundTrip(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
	}
	if got := Strategy(9).String(); got != "Strategy(9)" {
		t.Errorf("String() = %q, want Strategy(9)", got)
	}
}

func TestStrategy_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S Strategy `json:"s"`
	}{StrategyCombined})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `{"s":"combined"}` {
		t.Errorf("Marshal() = %s", b)
	}

	var out struct {
		S Strategy `json:"s"`
	}
	if err := json.Unmarshal([]byte(`{"s":"lfu"}`), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.S != StrategyLFU {
		t.Errorf("Unmarshal() = %v, want lfu", out.S)
	}

	if _, err := json.Marshal(Strategy(-3)); err == nil {
		t.Error("Marshal(invalid) error = nil")
	}
}

func TestStrategy_Score(t *testing.T) {
	now := epoch.Add(time.Hour)
	last := epoch

	tests := []struct {
		strategy Strategy
		access   int64
		size     int64
		priority int
		want     float64
	}{
		{StrategyLRU, 0, 0, 1, -float64(time.Hour)},
		{StrategyLFU, 7, 10, 1, 7},
		{StrategySize, 7, 10, 1, 10},
		{StrategyPriority, 7, 10, 3, 3},
		{StrategyCombined, 4, 8, 2, 1},
		{StrategyCombined, 4, 0, 2, 8},
	}

	for _, tt := range tests {
		got := tt.strategy.score(last, tt.access, tt.size, tt.priority, now)
		if got != tt.want {
			t.Errorf("%v.score(access=%d size=%d prio=%d) = %v, want %v",
				tt.strategy, tt.access, tt.size, tt.priority, got, tt.want)
		}
	}
}

func TestStrategy_Worse(t *testing.T) {
	if !StrategySize.worse(10, 5) {
		t.Error("size: larger score should be worse")
	}
	for _, s := range []Strategy{StrategyLRU, StrategyLFU, StrategyPriority, StrategyCombined} {
		if !s.worse(1, 2) {
			t.Errorf("%v: smaller score should be worse", s)
		}
		if s.worse(2, 2) {
			t.Errorf("%v: equal scores must not replace the current candidate", s)
		}
	}
}
