package analysis

import "fmt"

// Strategy selects which histogram supplies the thresholds for a sheet.
type Strategy int

const (
	// PerSheet classifies every sheet with thresholds guessed from its own
	// histogram.
	PerSheet Strategy = iota
	// Global classifies every sheet with the batch-wide thresholds.
	Global
)

func (s Strategy) String() string {
	if s == Global {
		return "global"
	}
	return "per-sheet"
}

// ParseStrategy converts "per-sheet" or "global" into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "per-sheet", "":
		return PerSheet, nil
	case "global":
		return Global, nil
	}
	return PerSheet, fmt.Errorf("unknown thresholding strategy %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
