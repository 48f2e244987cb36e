package query

import (
	"slices"

	"github.com/caio-sobreiro/dicomweb/types"
)

// Expression is a compiled QIDO-RS query. It is immutable; accessors return
// copies.
type Expression struct {
	resource      types.ResourceType
	conditions    map[types.TagPath]Condition
	order         []types.TagPath
	includeAll    bool
	includeFields []types.TagPath
	offset        int
	limit         int
	fuzzy         bool
	erroneous     []string
}

// Resource returns the searched resource type.
func (e *Expression) Resource() types.ResourceType { return e.resource }

// Level returns the level of the returned resources.
func (e *Expression) Level() types.ResourceLevel { return e.resource.Level() }

// Conditions returns the filters in the order they were supplied, route
// identifiers last.
func (e *Expression) Conditions() []Condition {
	out := make([]Condition, 0, len(e.order))
	for _, path := range e.order {
		out = append(out, e.conditions[path])
	}
	return out
}

// Condition returns the filter on path.
func (e *Expression) Condition(path types.TagPath) (Condition, bool) {
	c, ok := e.conditions[path]
	return c, ok
}

// IncludeAll reports whether includefield=all was requested.
func (e *Expression) IncludeAll() bool { return e.includeAll }

// IncludeFields returns the explicitly requested attributes.
func (e *Expression) IncludeFields() []types.TagPath { return slices.Clone(e.includeFields) }

func (e *Expression) Offset() int { return e.offset }
func (e *Expression) Limit() int  { return e.limit }

// FuzzyMatching reports whether fuzzy person-name matching was requested.
func (e *Expression) FuzzyMatching() bool { return e.fuzzy }

// ErroneousTags returns the filtered attributes whose extended tag has
// indexing errors.
func (e *Expression) ErroneousTags() []string { return slices.Clone(e.erroneous) }

// builder accumulates the fields of an Expression while parsing.
type builder struct {
	Expression
	includeSeen map[types.TagPath]bool
	controls    map[string]bool
}

func newBuilder(resource types.ResourceType) *builder {
	return &builder{
		Expression: Expression{
			resource:   resource,
			conditions: make(map[types.TagPath]Condition),
			limit:      DefaultLimit,
		},
		includeSeen: make(map[types.TagPath]bool),
		controls:    make(map[string]bool),
	}
}

func (b *builder) addCondition(c Condition) {
	path := c.Tag().Path
	b.conditions[path] = c
	b.order = append(b.order, path)
}

func (b *builder) hasCondition(path types.TagPath) bool {
	_, ok := b.conditions[path]
	return ok
}

func (b *builder) build() *Expression {
	expr := b.Expression
	return &expr
}
