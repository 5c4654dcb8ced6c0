package tally

import (
	"github.com/framegrade/framegrade/internal/errors"
)

// ErrDegenerateInput is returned when there is nothing to normalize
var ErrDegenerateInput = errors.NewStd("no frames were classified")

// Distribution is the share of frames per class, in percent
type Distribution struct {
	Classes []string  `json:"classes" yaml:"classes"`
	Percent []float64 `json:"percent" yaml:"percent"`
	Total   int       `json:"total" yaml:"total"`
}

// Normalize converts counts to percentages of the total. Percentages sum to
// 100 within floating point error. A zero total is a degenerate input.
func Normalize(classes ClassList, t *Tally) (Distribution, error) {
	if t == nil || t.Total() == 0 {
		return Distribution{}, errors.New(ErrDegenerateInput).
			Component("tally").
			Category(errors.CategoryDegenerate).
			Context("classes", len(classes)).
			Build()
	}
	if t.Len() != len(classes) {
		return Distribution{}, errors.Newf("tally has %d classes, class list has %d", t.Len(), len(classes)).
			Component("tally").
			Category(errors.CategoryValidation).
			Build()
	}

	d := Distribution{
		Classes: append([]string(nil), classes...),
		Percent: make([]float64, len(classes)),
		Total:   t.Total(),
	}
	total := float64(t.Total())
	for k := range classes {
		d.Percent[k] = 100 * float64(t.Count(k)) / total
	}
	return d, nil
}

// Map returns class name to percentage
func (d Distribution) Map() map[string]float64 {
	m := make(map[string]float64, len(d.Classes))
	for k, name := range d.Classes {
		m[name] = d.Percent[k]
	}
	return m
}

// Percentage returns the share of class name and whether it is known
func (d Distribution) Percentage(name string) (float64, bool) {
	for k, c := range d.Classes {
		if c == name {
			return d.Percent[k], true
		}
	}
	return 0, false
}
