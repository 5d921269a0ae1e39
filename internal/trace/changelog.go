package trace

import (
	"sort"

	"github.com/nvandessel/vcdq/internal/vcd"
)

// UnknownValue is the raw value of a signal before its first change.
const UnknownValue = "x"

// ChangeLog is a signal's change list split into parallel time and value
// sequences for binary search. Times are trusted to be non-decreasing, as
// written by the tokenizer; they are not re-sorted.
type ChangeLog struct {
	times  []int64
	values []string
}

// NewChangeLog builds a ChangeLog from tokenizer change records.
func NewChangeLog(changes []vcd.Change) *ChangeLog {
	cl := &ChangeLog{
		times:  make([]int64, len(changes)),
		values: make([]string, len(changes)),
	}
	for i, c := range changes {
		cl.times[i] = c.Time
		cl.values[i] = c.Value
	}
	return cl
}

// Len returns the number of recorded changes.
func (cl *ChangeLog) Len() int { return len(cl.times) }

// ValueAt returns the raw value in effect at t: the value of the last change
// at or before t, or UnknownValue if t precedes every change.
func (cl *ChangeLog) ValueAt(t int64) string {
	i := sort.Search(len(cl.times), func(i int) bool { return cl.times[i] > t }) - 1
	if i < 0 {
		return UnknownValue
	}
	return cl.values[i]
}
