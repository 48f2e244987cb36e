// Package query compiles QIDO-RS query strings into typed filter
// expressions.
package query

import (
	"strconv"
	"strings"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/types"
)

// Scope carries the identifiers supplied by the route of a scoped search.
type Scope struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
}

// ScopeOption sets a route identifier.
type ScopeOption func(*Scope)

// WithStudy scopes the query to one study.
func WithStudy(uid string) ScopeOption {
	return func(s *Scope) { s.StudyInstanceUID = uid }
}

// WithSeries scopes the query to one series.
func WithSeries(uid string) ScopeOption {
	return func(s *Scope) { s.SeriesInstanceUID = uid }
}

// Parse compiles params for resource against the tag snapshot tags.
// Control parameters are read first so that fuzzymatching applies to every
// filter; route identifiers are folded in after the filters.
func Parse(params Parameters, resource types.ResourceType, tags []types.QueryTag, opts ...ScopeOption) (*Expression, error) {
	var scope Scope
	for _, opt := range opts {
		opt(&scope)
	}

	catalog := NewCatalog(resource, tags)
	b := newBuilder(resource)

	var filters Parameters
	for _, param := range params {
		if !isControlParameter(param.Key) {
			filters = append(filters, param)
			continue
		}
		if err := b.parseControl(param); err != nil {
			return nil, err
		}
	}
	if b.includeAll && len(b.includeFields) > 0 {
		return nil, errors.NewQueryParseError(errors.KindInvalidParameter, ParamIncludeField, errors.MsgIncludeFieldAllCombined)
	}

	for _, param := range filters {
		if err := b.parseFilter(catalog, param); err != nil {
			return nil, err
		}
	}

	if scope.StudyInstanceUID != "" {
		if err := b.addScope(catalog, dicom.TagStudyInstanceUID, types.LevelStudy, scope.StudyInstanceUID); err != nil {
			return nil, err
		}
	}
	if scope.SeriesInstanceUID != "" {
		if err := b.addScope(catalog, dicom.TagSeriesInstanceUID, types.LevelSeries, scope.SeriesInstanceUID); err != nil {
			return nil, err
		}
	}

	return b.build(), nil
}

func (b *builder) parseControl(param Parameter) error {
	key := strings.ToLower(strings.TrimSpace(param.Key))
	value := strings.TrimSpace(param.Value)

	if key != ParamIncludeField {
		if b.controls[key] {
			return errors.NewQueryParseError(errors.KindDuplicateAttribute, param.Key, errors.MsgDuplicateAttribute, param.Key)
		}
		b.controls[key] = true
	}

	switch key {
	case ParamIncludeField:
		return b.parseIncludeField(value)
	case ParamFuzzyMatching:
		switch {
		case strings.EqualFold(value, "true"):
			b.fuzzy = true
		case strings.EqualFold(value, "false"):
			b.fuzzy = false
		default:
			return errors.NewQueryParseError(errors.KindInvalidParameter, param.Key, errors.MsgInvalidFuzzyMatching)
		}
	case ParamLimit:
		limit, err := strconv.Atoi(value)
		if err != nil || !isDigits(value) || limit < MinLimit || limit > MaxLimit {
			return errors.NewQueryParseError(errors.KindInvalidParameter, param.Key, errors.MsgInvalidLimit, MinLimit, MaxLimit)
		}
		b.limit = limit
	case ParamOffset:
		offset, err := strconv.Atoi(value)
		if err != nil || !isDigits(value) || offset < 0 {
			return errors.NewQueryParseError(errors.KindInvalidParameter, param.Key, errors.MsgInvalidOffset)
		}
		b.offset = offset
	}
	return nil
}

// parseIncludeField accepts a comma separated list. Fields only need to be
// valid attribute identifiers; the projector ignores those that do not
// belong to the resource level.
func (b *builder) parseIncludeField(value string) error {
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.EqualFold(field, "all") {
			b.includeAll = true
			continue
		}
		path, err := ParseTagPath(field)
		if err != nil {
			var parseErr *errors.QueryParseError
			if errors.As(err, &parseErr) && parseErr.Kind == errors.KindUnsupportedAttribute {
				return err
			}
			return errors.NewQueryParseError(errors.KindUnknownAttribute, ParamIncludeField, errors.MsgInvalidIncludeField, field)
		}
		if !b.includeSeen[path] {
			b.includeSeen[path] = true
			b.includeFields = append(b.includeFields, path)
		}
	}
	return nil
}

func (b *builder) parseFilter(catalog *Catalog, param Parameter) error {
	key := strings.TrimSpace(param.Key)
	value := strings.TrimSpace(param.Value)
	if value == "" {
		return errors.NewQueryParseError(errors.KindEmptyValue, key, errors.MsgEmptyAttributeValue, key)
	}

	tag, err := catalog.Resolve(key)
	if err != nil {
		return err
	}
	if b.hasCondition(tag.Path) {
		return errors.NewQueryParseError(errors.KindDuplicateAttribute, key, errors.MsgDuplicateAttribute, key)
	}

	condition, err := parseValue(tag, key, value, b.fuzzy)
	if err != nil {
		return err
	}
	b.addCondition(condition)

	if tag.IsExtended() && tag.ErrorCount > 0 {
		b.erroneous = append(b.erroneous, tag.Name())
	}
	return nil
}

func (b *builder) addScope(catalog *Catalog, tag dicom.Tag, level types.ResourceLevel, uid string) error {
	path := types.PathOf(tag)
	if b.hasCondition(path) {
		return errors.NewQueryParseError(errors.KindDuplicateAttribute, tag.Keyword(), errors.MsgDuplicateAttribute, tag.Keyword())
	}
	queryTag, ok := catalog.Lookup(path)
	if !ok {
		queryTag = types.NewCoreQueryTag(tag, level)
	}
	b.addCondition(NewSingleValueMatch(queryTag, uid))
	return nil
}
