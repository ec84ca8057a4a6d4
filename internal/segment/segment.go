package segment

import (
	"fmt"
	"math"
	"strconv"

	"claimlab/domain/dataset"
	"claimlab/internal/errors"
	"claimlab/internal/logging"
)

// Segmenter splits a record set into two named groups along one
// categorical feature's values.
type Segmenter struct {
	log logging.Logger
}

// NewSegmenter creates a segmenter.
func NewSegmenter(log logging.Logger) *Segmenter {
	return &Segmenter{log: log}
}

// Split partitions the table into group A (feature == valueA) and group B
// (feature == valueB) by exact equality, preserving source row order in
// both groups.
//
// A missing feature column yields a FEATURE_NOT_FOUND error. An empty
// group is not an error at this layer: both groups are returned together
// with an EMPTY_SEGMENT error, and the caller decides whether to skip or
// fail the containing test.
func (s *Segmenter) Split(t *dataset.Table, feature, valueA, valueB string) (*dataset.Table, *dataset.Table, error) {
	if !t.HasColumn(feature) {
		return nil, nil, errors.FeatureNotFound(feature)
	}

	match := matcher(t, feature)
	var idxA, idxB []int
	for i := 0; i < t.NumRows(); i++ {
		switch {
		case match(i, valueA):
			idxA = append(idxA, i)
		case match(i, valueB):
			idxB = append(idxB, i)
		}
	}

	groupA, _ := t.Select(idxA)
	groupB, _ := t.Select(idxB)

	s.log.Info("segment: %s: group A = %q (%d rows), group B = %q (%d rows)",
		feature, valueA, groupA.NumRows(), valueB, groupB.NumRows())

	if groupA.NumRows() == 0 {
		return groupA, groupB, errors.EmptySegment(feature, valueA)
	}
	if groupB.NumRows() == 0 {
		return groupA, groupB, errors.EmptySegment(feature, valueB)
	}
	return groupA, groupB, nil
}

// matcher returns an equality predicate for the feature column. Numeric
// features match against the decimal rendering of the requested value, so
// a config can segment on numeric codes (e.g. plan tiers) as well as text.
func matcher(t *dataset.Table, feature string) func(row int, value string) bool {
	if cats, ok := t.Categorical(feature); ok {
		return func(row int, value string) bool {
			return cats[row] == value
		}
	}
	nums, _ := t.Numeric(feature)
	return func(row int, value string) bool {
		want, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(nums[row]) {
			return false
		}
		return nums[row] == want
	}
}

// Describe renders a one-line summary of a segment pair for logs.
func Describe(feature, valueA, valueB string, nA, nB int) string {
	return fmt.Sprintf("%s: %q (n=%d) vs %q (n=%d)", feature, valueA, nA, valueB, nB)
}
