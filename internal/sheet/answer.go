package sheet

import "fmt"

// Answer is the classified state of one bubble.
type Answer int8

const (
	Filled    Answer = -1
	Uncertain Answer = 0
	Empty     Answer = 1
)

func (a Answer) String() string {
	switch a {
	case Filled:
		return "filled"
	case Empty:
		return "empty"
	}
	return "uncertain"
}

// Override is a manual correction of a bubble's classification. Auto defers
// to the classifier.
type Override int8

const (
	ForceFilled Override = -1
	Auto        Override = 0
	ForceEmpty  Override = 1
)

func (o Override) String() string {
	switch o {
	case ForceFilled:
		return "filled"
	case ForceEmpty:
		return "empty"
	}
	return "auto"
}

// ParseOverride converts "filled", "empty" or "auto" into an Override.
func ParseOverride(s string) (Override, error) {
	switch s {
	case "filled":
		return ForceFilled, nil
	case "empty":
		return ForceEmpty, nil
	case "auto", "":
		return Auto, nil
	}
	return Auto, fmt.Errorf("unknown override %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Override) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Override) UnmarshalText(text []byte) error {
	v, err := ParseOverride(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// next cycles Auto -> ForceFilled -> ForceEmpty -> Auto.
func (o Override) next() Override {
	o--
	if o < ForceFilled {
		o = ForceEmpty
	}
	return o
}

// Classify maps a brightness onto an Answer using the black and white
// thresholds: below black is Filled, at or above white is Empty.
func Classify(brightness, black, white int) Answer {
	switch {
	case brightness < black:
		return Filled
	case brightness >= white:
		return Empty
	}
	return Uncertain
}

// Status summarizes the answer state of a sheet.
type Status int

const (
	NotAnalyzed Status = iota
	AnalyzedWithErrors
	Analyzed
)

func (s Status) String() string {
	switch s {
	case AnalyzedWithErrors:
		return "analyzed-with-errors"
	case Analyzed:
		return "analyzed"
	}
	return "not-analyzed"
}
