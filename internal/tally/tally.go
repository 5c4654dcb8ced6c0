// Package tally counts per-frame predictions and turns the counts into a
// percentage distribution.
package tally

import (
	"fmt"
	"math"
	"strings"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/classifier"
	"github.com/framegrade/framegrade/internal/errors"
)

// ClassList is the ordered set of class names. Position defines the class
// index used by model outputs.
type ClassList []string

// NewClassList validates names: at least one, none blank, no duplicates.
func NewClassList(names ...string) (ClassList, error) {
	if len(names) == 0 {
		return nil, errors.ValidationError("class list is empty")
	}
	seen := make(map[string]int, len(names))
	list := make(ClassList, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.Newf("class %d has an empty name", i).
				Component("tally").
				Category(errors.CategoryValidation).
				Build()
		}
		if prev, dup := seen[name]; dup {
			return nil, errors.Newf("class %q is listed twice (positions %d and %d)", name, prev, i).
				Component("tally").
				Category(errors.CategoryValidation).
				Build()
		}
		seen[name] = i
		list[i] = name
	}
	return list, nil
}

// Len returns the number of classes
func (c ClassList) Len() int { return len(c) }

// Tally holds one count per class. The sum of counts always equals Total.
type Tally struct {
	counts []int
	total  int
}

// NewTally returns an empty tally for n classes
func NewTally(n int) *Tally {
	return &Tally{counts: make([]int, n)}
}

// Inc counts one frame for class index k. It panics on an out-of-range k.
func (t *Tally) Inc(k int) {
	t.counts[k]++
	t.total++
}

// Count returns the count for class k
func (t *Tally) Count(k int) int { return t.counts[k] }

// Counts returns a copy of all counts
func (t *Tally) Counts() []int {
	return append([]int(nil), t.counts...)
}

// Total returns the number of frames counted
func (t *Tally) Total() int { return t.total }

// Len returns the number of classes
func (t *Tally) Len() int { return len(t.counts) }

// Argmax returns the index of the highest score. Exact ties go to the
// lowest index and NaN never wins. It returns -1 for an empty vector or one
// that is all NaN.
func Argmax(scores []float32) int {
	best := -1
	for i, s := range scores {
		if math.IsNaN(float64(s)) {
			continue
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}

// Aggregator folds classifier outputs into a Tally. It belongs to a single
// evaluation.
type Aggregator struct {
	classes ClassList
	tally   *Tally
}

// NewAggregator returns an aggregator over classes
func NewAggregator(classes ClassList) *Aggregator {
	return &Aggregator{classes: classes, tally: NewTally(len(classes))}
}

// Add counts the argmax of each output. outputs must hold exactly b.Len()
// vectors of len(classes) scores; nothing is counted when any check fails.
func (a *Aggregator) Add(b *batch.Batch, outputs []classifier.ClassOutput) error {
	if len(outputs) != b.Len() {
		return classifier.NewOracleError(
			fmt.Errorf("classifier returned %d outputs for a batch of %d frames", len(outputs), b.Len()), b)
	}

	winners := make([]int, len(outputs))
	frames := b.Frames()
	for i, out := range outputs {
		if len(out) != len(a.classes) {
			return classifier.NewOracleError(
				fmt.Errorf("output for frame %d has %d scores, want %d", frames[i].Index, len(out), len(a.classes)), b)
		}
		k := Argmax(out)
		if k < 0 {
			return classifier.NewOracleError(
				fmt.Errorf("output for frame %d has no comparable score", frames[i].Index), b)
		}
		winners[i] = k
	}

	for _, k := range winners {
		a.tally.Inc(k)
	}
	return nil
}

// Tally returns the running tally
func (a *Aggregator) Tally() *Tally { return a.tally }

// Classes returns the class list
func (a *Aggregator) Classes() ClassList { return a.classes }
