// Package projection filters stored datasets down to the attributes a
// QIDO-RS response returns.
package projection

import (
	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

// selection is one top-level entry of the return set. A whole selection
// keeps the element as stored; otherwise only the listed attributes of
// each sequence item are kept.
type selection struct {
	whole bool
	inner map[dicom.Tag]bool
}

// Projector applies the return set of one compiled expression.
type Projector struct {
	keep map[dicom.Tag]*selection
}

// New computes the return set of expr: the level's "all" set or default
// set, the include fields that belong to the "all" set, and every filtered
// attribute.
func New(expr *query.Expression) *Projector {
	sets := resourceSets[expr.Resource()]
	p := &Projector{keep: make(map[dicom.Tag]*selection)}

	base := sets.defaults
	if expr.IncludeAll() {
		base = sets.all
	}
	for tag := range base {
		p.addWhole(tag)
	}

	for _, path := range expr.IncludeFields() {
		if !path.IsSequence() && sets.all[path.Tag] {
			p.addWhole(path.Tag)
		}
	}

	for _, condition := range expr.Conditions() {
		p.addPath(condition.Tag().Path)
	}
	return p
}

func (p *Projector) addWhole(tag dicom.Tag) {
	p.keep[tag] = &selection{whole: true}
}

func (p *Projector) addPath(path types.TagPath) {
	if !path.IsSequence() {
		p.addWhole(path.Tag)
		return
	}
	sel, ok := p.keep[path.Sequence]
	if !ok {
		sel = &selection{inner: make(map[dicom.Tag]bool)}
		p.keep[path.Sequence] = sel
	}
	if !sel.whole {
		sel.inner[path.Tag] = true
	}
}

// Tags returns the top-level attributes of the return set in ascending order.
func (p *Projector) Tags() []dicom.Tag {
	set := make(map[dicom.Tag]bool, len(p.keep))
	for tag := range p.keep {
		set[tag] = true
	}
	return sortedKeys(set)
}

// Project returns a copy of ds holding only the return set. Sequence items
// left without attributes are dropped, and so is a sequence left without
// items.
func (p *Projector) Project(ds *dicom.Dataset) *dicom.Dataset {
	out := dicom.NewDataset()
	if ds == nil {
		return out
	}

	for tag, element := range ds.Elements {
		sel, ok := p.keep[tag]
		if !ok {
			continue
		}
		if sel.whole {
			out.Elements[tag] = element.Copy()
			continue
		}

		items, ok := element.Value.([]*dicom.Dataset)
		if !ok {
			continue
		}
		var kept []*dicom.Dataset
		for _, item := range items {
			if projected := projectItem(item, sel.inner); projected.Len() > 0 {
				kept = append(kept, projected)
			}
		}
		if len(kept) > 0 {
			out.AddSequence(tag, kept...)
		}
	}
	return out
}

func projectItem(item *dicom.Dataset, keep map[dicom.Tag]bool) *dicom.Dataset {
	out := dicom.NewDataset()
	if item == nil {
		return out
	}
	for tag, element := range item.Elements {
		if keep[tag] {
			out.Elements[tag] = element.Copy()
		}
	}
	return out
}
