// Package dicom contains the DICOM attribute model used by the query engine:
// tags, value representations, a keyword dictionary, datasets with nested
// sequences and their DICOM JSON encoding.
package dicom

import (
	"slices"
	"strconv"
	"strings"
)

// Element represents a DICOM data element.
//
// Value holds []string for string VRs (person names are their alphabetic
// component), []int64 for integer VRs, []float64 for decimal VRs and
// []*Dataset for sequences. A single string, int64 or float64 is accepted
// too when building datasets by hand.
type Element struct {
	Tag   Tag
	VR    VR
	Value interface{}
}

// Dataset represents a collection of DICOM elements
type Dataset struct {
	Elements map[Tag]*Element
}

// NewDataset creates a new empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		Elements: make(map[Tag]*Element),
	}
}

// AddElement adds an element to the dataset
func (d *Dataset) AddElement(tag Tag, vr VR, value interface{}) {
	element := &Element{
		Tag:   tag,
		VR:    vr,
		Value: value,
	}
	d.Elements[tag] = element
}

// AddSequence adds a sequence element holding the given items.
func (d *Dataset) AddSequence(tag Tag, items ...*Dataset) {
	d.AddElement(tag, VR_SQ, items)
}

// GetElement returns an element by tag
func (d *Dataset) GetElement(tag Tag) (*Element, bool) {
	element, exists := d.Elements[tag]
	return element, exists
}

// Remove deletes an element by tag.
func (d *Dataset) Remove(tag Tag) {
	delete(d.Elements, tag)
}

// Len returns the number of top-level elements.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Elements)
}

// Tags returns the top-level tags in ascending order.
func (d *Dataset) Tags() []Tag {
	tags := make([]Tag, 0, len(d.Elements))
	for tag := range d.Elements {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, CompareTags)
	return tags
}

// GetString returns a string value for a tag
func (d *Dataset) GetString(tag Tag) string {
	values := d.GetStrings(tag)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// GetStrings returns a slice of string values for a tag
func (d *Dataset) GetStrings(tag Tag) []string {
	if element, exists := d.Elements[tag]; exists {
		switch v := element.Value.(type) {
		case string:
			// Split by backslash for multiple values
			parts := strings.Split(v, "\\")
			result := make([]string, len(parts))
			for i, part := range parts {
				result[i] = strings.TrimSpace(part)
			}
			return result
		case []string:
			return v
		}
	}
	return nil
}

// Strings returns the values of a non-sequence element as strings.
func (e *Element) Strings() []string {
	switch v := e.Value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, "\\")
	case []string:
		return slices.Clone(v)
	case int64:
		return []string{strconv.FormatInt(v, 10)}
	case int:
		return []string{strconv.Itoa(v)}
	case []int64:
		out := make([]string, len(v))
		for i, n := range v {
			out[i] = strconv.FormatInt(n, 10)
		}
		return out
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case []float64:
		out := make([]string, len(v))
		for i, f := range v {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return out
	}
	return nil
}

// Items returns the items of a sequence element.
func (d *Dataset) Items(tag Tag) []*Dataset {
	if element, exists := d.Elements[tag]; exists {
		if items, ok := element.Value.([]*Dataset); ok {
			return items
		}
	}
	return nil
}

// Copy returns a deep copy of the dataset, including sequence items.
func (d *Dataset) Copy() *Dataset {
	if d == nil {
		return nil
	}
	out := NewDataset()
	for tag, element := range d.Elements {
		out.Elements[tag] = element.Copy()
	}
	return out
}

// Copy returns a deep copy of the element.
func (e *Element) Copy() *Element {
	out := &Element{Tag: e.Tag, VR: e.VR}
	switch v := e.Value.(type) {
	case []*Dataset:
		items := make([]*Dataset, len(v))
		for i, item := range v {
			items[i] = item.Copy()
		}
		out.Value = items
	case []string:
		out.Value = slices.Clone(v)
	case []int64:
		out.Value = slices.Clone(v)
	case []float64:
		out.Value = slices.Clone(v)
	default:
		out.Value = v
	}
	return out
}

// CompareTags orders tags by group, then element.
func CompareTags(a, b Tag) int {
	if a.Group != b.Group {
		return int(a.Group) - int(b.Group)
	}
	return int(a.Element) - int(b.Element)
}
