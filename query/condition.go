package query

import (
	"fmt"
	"time"

	"github.com/caio-sobreiro/dicomweb/types"
)

// Value is the set of typed filter values.
type Value interface {
	string | int64 | float64 | time.Time
}

// Condition is a compiled filter on one attribute. The concrete types are
// SingleValueMatch, RangeMatch and FuzzyMatch.
type Condition interface {
	Tag() types.QueryTag
	String() string
	condition()
}

// SingleValueMatch matches attributes equal to one value.
type SingleValueMatch[T Value] struct {
	tag   types.QueryTag
	value T
}

// NewSingleValueMatch creates an equality condition.
func NewSingleValueMatch[T Value](tag types.QueryTag, value T) SingleValueMatch[T] {
	return SingleValueMatch[T]{tag: tag, value: value}
}

func (m SingleValueMatch[T]) Tag() types.QueryTag { return m.tag }
func (m SingleValueMatch[T]) Value() T            { return m.value }
func (SingleValueMatch[T]) condition()            {}

func (m SingleValueMatch[T]) String() string {
	return fmt.Sprintf("%s=%s", m.tag.Name(), formatValue(m.value))
}

// RangeMatch matches attributes within [Min, Max]. Open date bounds are
// MinDate and MaxDate; open time bounds are 0 and TicksPerDay.
type RangeMatch[T Value] struct {
	tag types.QueryTag
	min T
	max T
}

// NewRangeMatch creates a range condition. Callers check min <= max.
func NewRangeMatch[T Value](tag types.QueryTag, min, max T) RangeMatch[T] {
	return RangeMatch[T]{tag: tag, min: min, max: max}
}

func (m RangeMatch[T]) Tag() types.QueryTag { return m.tag }
func (m RangeMatch[T]) Min() T              { return m.min }
func (m RangeMatch[T]) Max() T              { return m.max }
func (RangeMatch[T]) condition()            {}

func (m RangeMatch[T]) String() string {
	return fmt.Sprintf("%s=%s-%s", m.tag.Name(), formatValue(m.min), formatValue(m.max))
}

// FuzzyMatch matches person names whose name components start with the
// words of Value.
type FuzzyMatch struct {
	tag   types.QueryTag
	value string
}

// NewFuzzyMatch creates a fuzzy person-name condition.
func NewFuzzyMatch(tag types.QueryTag, value string) FuzzyMatch {
	return FuzzyMatch{tag: tag, value: value}
}

func (m FuzzyMatch) Tag() types.QueryTag { return m.tag }
func (m FuzzyMatch) Value() string       { return m.value }
func (FuzzyMatch) condition()            {}

func (m FuzzyMatch) String() string {
	return fmt.Sprintf("%s~%s", m.tag.Name(), m.value)
}

func formatValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateTimeLayouts[0])
	}
	return fmt.Sprint(v)
}
