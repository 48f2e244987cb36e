package query

import (
	"slices"
	"strings"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/types"
)

// Paging bounds.
const (
	DefaultLimit = 100
	MinLimit     = 1
	MaxLimit     = 200
)

var coreStudyTags = []dicom.Tag{
	dicom.TagStudyInstanceUID,
	dicom.TagStudyDate,
	dicom.TagStudyDescription,
	dicom.TagAccessionNumber,
	dicom.TagPatientID,
	dicom.TagPatientName,
	dicom.TagReferringPhysicianName,
	dicom.TagPatientBirthDate,
}

var coreSeriesTags = []dicom.Tag{
	dicom.TagSeriesInstanceUID,
	dicom.TagModality,
	dicom.TagPerformedProcedureStepStartDate,
	dicom.TagManufacturerModelName,
}

var coreInstanceTags = []dicom.Tag{
	dicom.TagSOPInstanceUID,
}

// Core date attributes that accept range matching. Extended date and time
// attributes always do.
var rangeEligibleCore = map[dicom.Tag]bool{
	dicom.TagStudyDate:                       true,
	dicom.TagSeriesDate:                      true,
	dicom.TagPerformedProcedureStepStartDate: true,
}

// CoreQueryTags returns the built-in queryable attributes of every level.
func CoreQueryTags() []types.QueryTag {
	tags := make([]types.QueryTag, 0, len(coreStudyTags)+len(coreSeriesTags)+len(coreInstanceTags))
	for _, tag := range coreStudyTags {
		tags = append(tags, types.NewCoreQueryTag(tag, types.LevelStudy))
	}
	for _, tag := range coreSeriesTags {
		tags = append(tags, types.NewCoreQueryTag(tag, types.LevelSeries))
	}
	for _, tag := range coreInstanceTags {
		tags = append(tags, types.NewCoreQueryTag(tag, types.LevelInstance))
	}
	return tags
}

func isRangeEligible(tag types.QueryTag) bool {
	if tag.IsExtended() {
		return tag.VR == dicom.VR_DA || tag.VR == dicom.VR_DT || tag.VR == dicom.VR_TM
	}
	return !tag.Path.IsSequence() && rangeEligibleCore[tag.Path.Tag]
}

// Catalog resolves attribute identifiers against a tag snapshot narrowed to
// one resource type.
type Catalog struct {
	resource types.ResourceType
	eligible map[types.TagPath]types.QueryTag
	known    map[types.TagPath]types.QueryTag
}

// NewCatalog narrows tags to those eligible for resource. Extended tags are
// kept when Ready, or Disabled so that their use can be reported; Pending
// and Error tags are left out as if unknown.
func NewCatalog(resource types.ResourceType, tags []types.QueryTag) *Catalog {
	c := &Catalog{
		resource: resource,
		eligible: make(map[types.TagPath]types.QueryTag),
		known:    make(map[types.TagPath]types.QueryTag),
	}
	levels := resource.FilterLevels()
	for _, tag := range tags {
		if !tag.IsReady() && tag.Status != types.StatusDisabled {
			continue
		}
		c.known[tag.Path] = tag
		if slices.Contains(levels, tag.Level) || c.isScopeIdentifier(tag) {
			c.eligible[tag.Path] = tag
		}
	}
	return c
}

// Route identifiers stay eligible on scoped resources so that a filter on
// the same attribute is reported as a duplicate.
func (c *Catalog) isScopeIdentifier(tag types.QueryTag) bool {
	if tag.Path.IsSequence() {
		return false
	}
	switch tag.Path.Tag {
	case dicom.TagStudyInstanceUID:
		return c.resource.IsStudyScoped()
	case dicom.TagSeriesInstanceUID:
		return c.resource.IsSeriesScoped()
	}
	return false
}

// Resolve maps a keyword, hex tag or "outer.inner" sequence path to the
// eligible tag it names.
func (c *Catalog) Resolve(id string) (types.QueryTag, error) {
	path, err := ParseTagPath(id)
	if err != nil {
		return types.QueryTag{}, err
	}

	if tag, ok := c.eligible[path]; ok {
		if tag.IsExtended() && tag.Status == types.StatusDisabled {
			return types.QueryTag{}, errors.NewQueryParseError(errors.KindUnsupportedAttribute, id, errors.MsgDisabledQueryTag, id)
		}
		return tag, nil
	}
	if _, ok := c.known[path]; ok {
		return types.QueryTag{}, errors.NewQueryParseError(errors.KindUnsupportedAttribute, id, errors.MsgUnsupportedForLevel, id)
	}
	return types.QueryTag{}, errors.NewQueryParseError(errors.KindUnknownAttribute, id, errors.MsgUnknownQueryParameter, id)
}

// Lookup returns the eligible tag at path, if any.
func (c *Catalog) Lookup(path types.TagPath) (types.QueryTag, bool) {
	tag, ok := c.eligible[path]
	return tag, ok
}

// ParseTagPath parses an attribute identifier: a keyword, eight hex digits,
// or two of those joined by a dot for an attribute inside a sequence.
func ParseTagPath(id string) (types.TagPath, error) {
	parts := strings.Split(strings.TrimSpace(id), ".")
	if len(parts) > 2 {
		return types.TagPath{}, errors.NewQueryParseError(errors.KindUnsupportedAttribute, id, errors.MsgNestedSequence, id)
	}

	tags := make([]dicom.Tag, 0, len(parts))
	for _, part := range parts {
		tag, ok := dicom.ParseAttribute(part)
		if !ok {
			return types.TagPath{}, errors.NewQueryParseError(errors.KindUnknownAttribute, id, errors.MsgUnknownQueryParameter, id)
		}
		tags = append(tags, tag)
	}

	if len(tags) == 1 {
		return types.PathOf(tags[0]), nil
	}
	if dicom.DefaultVR(tags[0]) != dicom.VR_SQ && !tags[0].IsPrivate() {
		return types.TagPath{}, errors.NewQueryParseError(errors.KindUnknownAttribute, id, errors.MsgUnknownQueryParameter, id)
	}
	return types.TagPath{Sequence: tags[0], Tag: tags[1]}, nil
}
