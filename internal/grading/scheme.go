package grading

import (
	"errors"
	"fmt"

	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// AnswerSource yields the effective answer of a bubble. *sheet.Sheet
// implements it.
type AnswerSource interface {
	Answer(g *structure.QuestionGroup, row, col int) sheet.Answer
}

// Scheme holds the points awarded per question outcome and the bounds every
// question score is clamped to.
type Scheme struct {
	CorrectScore          float64 `yaml:"correct" json:"correct"`
	IncorrectScore        float64 `yaml:"incorrect" json:"incorrect"`
	DefaultScore          float64 `yaml:"default" json:"default"`
	MultipleSelectedScore float64 `yaml:"multiple_selected" json:"multiple_selected"`
	MinScore              float64 `yaml:"min" json:"min"`
	MaxScore              float64 `yaml:"max" json:"max"`
}

// DefaultScheme awards 1 for a correct answer, -0.5 for an incorrect one and
// 0 for no answer, with multiple selections clamped to the minimum.
func DefaultScheme() Scheme {
	return Scheme{
		CorrectScore:          1,
		IncorrectScore:        -0.5,
		DefaultScore:          0,
		MultipleSelectedScore: -100,
		MinScore:              -0.5,
		MaxScore:              1,
	}
}

// ErrInvalidScheme is returned by Validate when the score bounds are inverted.
var ErrInvalidScheme = errors.New("invalid grading scheme")

// Validate reports whether the clamp bounds are usable.
func (s Scheme) Validate() error {
	if s.MinScore > s.MaxScore {
		return fmt.Errorf("%w: min score %g exceeds max score %g", ErrInvalidScheme, s.MinScore, s.MaxScore)
	}
	return nil
}

// Outcome classifies how a question was answered.
type Outcome int

const (
	Unanswered Outcome = iota
	Correct
	Incorrect
	Multiple
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	case Multiple:
		return "multiple"
	}
	return "unanswered"
}

// Evaluate determines the outcome of question in g. More than one selected
// alternative is Multiple; otherwise a selected correct alternative is
// Correct and a selected incorrect one is Incorrect.
func Evaluate(src AnswerSource, g *structure.QuestionGroup, question int) Outcome {
	selected := 0
	anyCorrect, anyIncorrect := false, false
	for alt := 0; alt < g.Alternatives(); alt++ {
		row, col := g.Cell(question, alt)
		if src.Answer(g, row, col) != sheet.Filled {
			continue
		}
		selected++
		if g.CorrectAnswer(question, alt) {
			anyCorrect = true
		} else {
			anyIncorrect = true
		}
	}
	switch {
	case selected > 1:
		return Multiple
	case anyCorrect:
		return Correct
	case anyIncorrect:
		return Incorrect
	}
	return Unanswered
}

// Points returns the clamped score for an outcome.
func (s Scheme) Points(o Outcome) float64 {
	var v float64
	switch o {
	case Multiple:
		v = s.MultipleSelectedScore
	case Correct:
		v = s.CorrectScore
	case Incorrect:
		v = s.IncorrectScore
	default:
		v = s.DefaultScore
	}
	return s.clamp(v)
}

func (s Scheme) clamp(v float64) float64 {
	if v < s.MinScore {
		v = s.MinScore
	}
	if v > s.MaxScore {
		v = s.MaxScore
	}
	return v
}

// Score returns the score of one question. Groups that are not graded
// (student number, check letter) score 0.
func (s Scheme) Score(src AnswerSource, g *structure.QuestionGroup, question int) float64 {
	if !g.Orientation().Graded() {
		return 0
	}
	return s.Points(Evaluate(src, g, question))
}

// GroupScore sums the scores of every question in g.
func (s Scheme) GroupScore(src AnswerSource, g *structure.QuestionGroup) float64 {
	if !g.Orientation().Graded() {
		return 0
	}
	var total float64
	for q := 0; q < g.Questions(); q++ {
		total += s.Score(src, g, q)
	}
	return total
}

// TotalScore sums GroupScore over groups.
func (s Scheme) TotalScore(src AnswerSource, groups []*structure.QuestionGroup) float64 {
	var total float64
	for _, g := range groups {
		total += s.GroupScore(src, g)
	}
	return total
}

// MaxTotal returns the best achievable total over groups.
func (s Scheme) MaxTotal(groups []*structure.QuestionGroup) float64 {
	var total float64
	for _, g := range groups {
		if g.Orientation().Graded() {
			total += float64(g.Questions()) * s.Points(Correct)
		}
	}
	return total
}
