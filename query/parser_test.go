package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/types"
)

var (
	tagFloatPadding  = dicom.Tag{Group: 0x0028, Element: 0x0122}
	tagDoublePadding = dicom.Tag{Group: 0x0028, Element: 0x0123}
	tagPixelX0       = dicom.Tag{Group: 0x0018, Element: 0x6020}
	tagPrivate       = dicom.Tag{Group: 0x0009, Element: 0x1001}
)

func extendedTag(tag dicom.Tag, vr dicom.VR, level types.ResourceLevel, status types.ExtendedTagStatus) types.QueryTag {
	entry, _ := dicom.LookupTag(tag)
	return types.QueryTag{
		Path:    types.PathOf(tag),
		VR:      vr,
		Keyword: entry.Keyword,
		Level:   level,
		Origin:  types.OriginExtended,
		Status:  status,
	}
}

func params(pairs ...string) Parameters {
	var p Parameters
	for i := 0; i+1 < len(pairs); i += 2 {
		p = p.Add(pairs[i], pairs[i+1])
	}
	return p
}

func requireParseError(t *testing.T, err error, kind errors.QueryErrorKind) *errors.QueryParseError {
	t.Helper()
	require.Error(t, err)
	var parseErr *errors.QueryParseError
	require.True(t, errors.As(err, &parseErr), "expected QueryParseError, got %T: %v", err, err)
	assert.Equal(t, kind, parseErr.Kind, parseErr.Error())
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
	return parseErr
}

func TestParse_StudyScenario(t *testing.T) {
	expr, err := Parse(params("PatientID", "123", "StudyDate", "20200101-20200131"), types.AllStudies, CoreQueryTags())
	require.NoError(t, err)

	conditions := expr.Conditions()
	require.Len(t, conditions, 2)

	patient, ok := conditions[0].(SingleValueMatch[string])
	require.True(t, ok)
	assert.Equal(t, "123", patient.Value())
	assert.Equal(t, dicom.TagPatientID, patient.Tag().Path.Tag)

	date, ok := conditions[1].(RangeMatch[time.Time])
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), date.Min())
	assert.Equal(t, time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), date.Max())

	assert.Equal(t, DefaultLimit, expr.Limit())
	assert.Equal(t, 0, expr.Offset())
	assert.False(t, expr.IncludeAll())
	assert.Empty(t, expr.ErroneousTags())
}

func TestParse_HexAndKeywordResolveToSameTag(t *testing.T) {
	expr, err := Parse(params("00100020", "123"), types.AllStudies, CoreQueryTags())
	require.NoError(t, err)

	c, ok := expr.Condition(types.PathOf(dicom.TagPatientID))
	require.True(t, ok)
	assert.Equal(t, "PatientID", c.Tag().Keyword)
}

func TestParse_Duplicates(t *testing.T) {
	tests := []struct {
		name     string
		params   Parameters
		resource types.ResourceType
		opts     []ScopeOption
	}{
		{"repeated key", params("PatientID", "1", "PatientID", "2"), types.AllStudies, nil},
		{"keyword and hex", params("PatientID", "1", "00100020", "2"), types.AllStudies, nil},
		{"study route collision", params("StudyInstanceUID", "1.2.3"), types.StudySeries, []ScopeOption{WithStudy("1.2.3")}},
		{"series route collision", params("SeriesInstanceUID", "1.2.4"), types.StudySeriesInstances, []ScopeOption{WithStudy("1.2.3"), WithSeries("1.2.4")}},
		{"repeated limit", params("limit", "10", "LIMIT", "20"), types.AllStudies, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.params, tt.resource, CoreQueryTags(), tt.opts...)
			requireParseError(t, err, errors.KindDuplicateAttribute)
		})
	}
}

func TestParse_RouteIdentifiersFoldedIn(t *testing.T) {
	expr, err := Parse(params("Modality", "CT"), types.StudySeries, CoreQueryTags(), WithStudy("1.2.3"))
	require.NoError(t, err)

	conditions := expr.Conditions()
	require.Len(t, conditions, 2)
	study, ok := conditions[1].(SingleValueMatch[string])
	require.True(t, ok)
	assert.Equal(t, dicom.TagStudyInstanceUID, study.Tag().Path.Tag)
	assert.Equal(t, "1.2.3", study.Value())
}

func TestParse_RouteIdentifierWithoutCatalogEntry(t *testing.T) {
	expr, err := Parse(nil, types.StudyInstances, nil, WithStudy("1.2.3"))
	require.NoError(t, err)

	c, ok := expr.Condition(types.PathOf(dicom.TagStudyInstanceUID))
	require.True(t, ok)
	assert.Equal(t, dicom.VR_UI, c.Tag().VR)
}

func TestParse_Limits(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		ok    bool
	}{
		{"limit zero", "limit", "0", false},
		{"limit above max", "limit", "201", false},
		{"limit max", "limit", "200", true},
		{"limit min", "Limit", "1", true},
		{"limit not a number", "limit", "ten", false},
		{"offset negative", "offset", "-1", false},
		{"offset zero", "offset", "0", true},
		{"offset large", "OFFSET", "5000", true},
		{"offset not a number", "offset", "1.5", false},
		{"limit with plus sign", "limit", "+5", false},
		{"offset with plus sign", "offset", "+3", false},
		{"limit key padded", " limit ", "5", true},
		{"fuzzy true", "fuzzymatching", "TRUE", true},
		{"fuzzy false", "FuzzyMatching", "false", true},
		{"fuzzy invalid", "fuzzymatching", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(params(tt.key, tt.value), types.AllStudies, CoreQueryTags())
			if tt.ok {
				assert.NoError(t, err)
			} else {
				requireParseError(t, err, errors.KindInvalidParameter)
			}
		})
	}
}

func TestParse_PagingValues(t *testing.T) {
	expr, err := Parse(params("limit", "200", "offset", "40"), types.AllInstances, CoreQueryTags())
	require.NoError(t, err)
	assert.Equal(t, 200, expr.Limit())
	assert.Equal(t, 40, expr.Offset())

	expr, err = Parse(params(" limit", "5"), types.AllStudies, CoreQueryTags())
	require.NoError(t, err)
	assert.Equal(t, 5, expr.Limit())
	assert.Empty(t, expr.Conditions())
}

func TestParse_IncludeField(t *testing.T) {
	t.Run("all combined with another value", func(t *testing.T) {
		_, err := Parse(params("includefield", "all,StudyDescription"), types.AllStudies, CoreQueryTags())
		perr := requireParseError(t, err, errors.KindInvalidParameter)
		assert.Equal(t, errors.MsgIncludeFieldAllCombined, perr.Error())
	})

	t.Run("all combined across repeats", func(t *testing.T) {
		_, err := Parse(params("includefield", "StudyDescription", "includefield", "ALL"), types.AllStudies, CoreQueryTags())
		requireParseError(t, err, errors.KindInvalidParameter)
	})

	t.Run("single field", func(t *testing.T) {
		expr, err := Parse(params("includefield", "StudyDescription"), types.AllStudies, CoreQueryTags())
		require.NoError(t, err)
		assert.Equal(t, []types.TagPath{types.PathOf(dicom.TagStudyDescription)}, expr.IncludeFields())
		assert.False(t, expr.IncludeAll())
	})

	t.Run("repeats are merged", func(t *testing.T) {
		expr, err := Parse(params("includefield", "StudyDescription,00081030", "includefield", "Modality"), types.AllSeries, CoreQueryTags())
		require.NoError(t, err)
		assert.Equal(t, []types.TagPath{
			types.PathOf(dicom.TagStudyDescription),
			types.PathOf(dicom.TagModality),
		}, expr.IncludeFields())
	})

	t.Run("all", func(t *testing.T) {
		expr, err := Parse(params("includefield", "all"), types.AllStudies, CoreQueryTags())
		require.NoError(t, err)
		assert.True(t, expr.IncludeAll())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Parse(params("includefield", "NotAKeyword"), types.AllStudies, CoreQueryTags())
		perr := requireParseError(t, err, errors.KindUnknownAttribute)
		assert.Equal(t, "the value 'NotAKeyword' of includefield is not a known attribute", perr.Error())
	})
}

func TestParse_UnknownAndUnsupported(t *testing.T) {
	t.Run("unknown keyword", func(t *testing.T) {
		_, err := Parse(params("patientid", "1"), types.AllStudies, CoreQueryTags())
		perr := requireParseError(t, err, errors.KindUnknownAttribute)
		assert.Equal(t, "patientid", perr.Parameter)
	})

	t.Run("series attribute on studies", func(t *testing.T) {
		_, err := Parse(params("Modality", "CT"), types.AllStudies, CoreQueryTags())
		perr := requireParseError(t, err, errors.KindUnsupportedAttribute)
		assert.Equal(t, "query parameter 'Modality' is not supported for the requested resource level", perr.Error())
	})

	t.Run("study attribute on study series", func(t *testing.T) {
		_, err := Parse(params("PatientID", "1"), types.StudySeries, CoreQueryTags(), WithStudy("1.2"))
		requireParseError(t, err, errors.KindUnsupportedAttribute)
	})

	t.Run("nested sequence", func(t *testing.T) {
		_, err := Parse(params("ReferencedStudySequence.ReferencedSeriesSequence.SeriesInstanceUID", "1"), types.AllStudies, CoreQueryTags())
		requireParseError(t, err, errors.KindUnsupportedAttribute)
	})

	t.Run("dictionary tag outside the catalog", func(t *testing.T) {
		_, err := Parse(params("StudyID", "1"), types.AllStudies, CoreQueryTags())
		requireParseError(t, err, errors.KindUnknownAttribute)
	})

	t.Run("VR without parser", func(t *testing.T) {
		tags := append(CoreQueryTags(), extendedTag(dicom.TagReferencedStudySequence, dicom.VR_SQ, types.LevelStudy, types.StatusReady))
		_, err := Parse(params("ReferencedStudySequence", "x"), types.AllStudies, tags)
		requireParseError(t, err, errors.KindUnknownAttribute)
	})
}

func TestParse_EmptyValue(t *testing.T) {
	_, err := Parse(params("PatientID", "  "), types.AllStudies, CoreQueryTags())
	perr := requireParseError(t, err, errors.KindEmptyValue)
	assert.Equal(t, "query parameter 'PatientID' cannot be empty", perr.Error())
}

func TestParse_DateRanges(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		min     time.Time
		max     time.Time
		wantErr bool
	}{
		{"closed", "20200101-20200131", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), false},
		{"open start", "-20200131", MinDate, time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), false},
		{"open end", "20200101-", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), MaxDate, false},
		{"same day", "20200101-20200101", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"padded sides", " 20200101 - 20200131 ", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), false},
		{"reversed", "20200131-20200101", time.Time{}, time.Time{}, true},
		{"both empty", "-", time.Time{}, time.Time{}, true},
		{"bad side", "2020-20200131", time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(params("StudyDate", tt.value), types.AllStudies, CoreQueryTags())
			if tt.wantErr {
				requireParseError(t, err, errors.KindMalformedValue)
				return
			}
			require.NoError(t, err)
			c, ok := expr.Condition(types.PathOf(dicom.TagStudyDate))
			require.True(t, ok)
			r, ok := c.(RangeMatch[time.Time])
			require.True(t, ok)
			assert.Equal(t, tt.min, r.Min())
			assert.Equal(t, tt.max, r.Max())
		})
	}
}

func TestParse_DateRangeRoundTrip(t *testing.T) {
	ranges := []string{"19991231-20000101", "20200101-20200131", "20240229-20240301", "18000101-99991231"}

	for _, raw := range ranges {
		t.Run(raw, func(t *testing.T) {
			expr, err := Parse(params("StudyDate", raw), types.AllStudies, CoreQueryTags())
			require.NoError(t, err)
			r := expr.Conditions()[0].(RangeMatch[time.Time])

			serialized := r.Min().Format(DateLayout) + "-" + r.Max().Format(DateLayout)
			assert.Equal(t, raw, serialized)

			again, err := Parse(params("StudyDate", serialized), types.AllStudies, CoreQueryTags())
			require.NoError(t, err)
			assert.Equal(t, r, again.Conditions()[0])
		})
	}
}

func TestParse_SingleDateOnNonRangeTag(t *testing.T) {
	expr, err := Parse(params("PatientBirthDate", "19800101"), types.AllStudies, CoreQueryTags())
	require.NoError(t, err)
	c := expr.Conditions()[0].(SingleValueMatch[time.Time])
	assert.Equal(t, time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), c.Value())

	_, err = Parse(params("PatientBirthDate", "19800101-19900101"), types.AllStudies, CoreQueryTags())
	perr := requireParseError(t, err, errors.KindMalformedValue)
	assert.Equal(t, "invalid query: attribute PatientBirthDate has an invalid date value '19800101-19900101'", perr.Error())
}

func TestParse_Fuzzy(t *testing.T) {
	t.Run("person name", func(t *testing.T) {
		expr, err := Parse(params("PatientName", " Doe^ John ", "fuzzymatching", "true"), types.AllStudies, CoreQueryTags())
		require.NoError(t, err)
		c, ok := expr.Conditions()[0].(FuzzyMatch)
		require.True(t, ok)
		assert.Equal(t, "Doe John", c.Value())
		assert.True(t, expr.FuzzyMatching())
	})

	t.Run("not a person name", func(t *testing.T) {
		expr, err := Parse(params("fuzzymatching", "true", "PatientID", "Doe"), types.AllStudies, CoreQueryTags())
		require.NoError(t, err)
		c, ok := expr.Conditions()[0].(SingleValueMatch[string])
		require.True(t, ok)
		assert.Equal(t, "Doe", c.Value())
	})

	t.Run("quote", func(t *testing.T) {
		_, err := Parse(params("fuzzymatching", "true", "ReferringPhysicianName", `Do"e`), types.AllStudies, CoreQueryTags())
		perr := requireParseError(t, err, errors.KindMalformedValue)
		assert.Contains(t, perr.Error(), `unsupported character '"'`)
	})

	t.Run("quote without fuzzy", func(t *testing.T) {
		expr, err := Parse(params("PatientName", `Do"e`), types.AllStudies, CoreQueryTags())
		require.NoError(t, err)
		_, ok := expr.Conditions()[0].(SingleValueMatch[string])
		assert.True(t, ok)
	})
}

func TestParse_ExtendedTags(t *testing.T) {
	ready := extendedTag(tagFloatPadding, dicom.VR_FL, types.LevelStudy, types.StatusReady)
	disabled := extendedTag(tagDoublePadding, dicom.VR_FD, types.LevelStudy, types.StatusDisabled)
	pending := extendedTag(tagPixelX0, dicom.VR_SL, types.LevelStudy, types.StatusPending)
	errored := extendedTag(dicom.TagSeriesDate, dicom.VR_DA, types.LevelSeries, types.StatusReady)
	errored.ErrorCount = 3
	private := types.QueryTag{
		Path:           types.PathOf(tagPrivate),
		VR:             dicom.VR_LO,
		Level:          types.LevelStudy,
		Origin:         types.OriginExtended,
		Status:         types.StatusReady,
		PrivateCreator: "ACME",
	}
	tags := append(CoreQueryTags(), ready, disabled, pending, errored, private)

	t.Run("ready", func(t *testing.T) {
		expr, err := Parse(params("FloatPixelPaddingValue", "1.5"), types.AllStudies, tags)
		require.NoError(t, err)
		c := expr.Conditions()[0].(SingleValueMatch[float64])
		assert.Equal(t, 1.5, c.Value())
	})

	t.Run("disabled", func(t *testing.T) {
		_, err := Parse(params("DoubleFloatPixelPaddingValue", "1.5"), types.AllStudies, tags)
		perr := requireParseError(t, err, errors.KindUnsupportedAttribute)
		assert.Equal(t, "query on extended query tag 'DoubleFloatPixelPaddingValue' is disabled", perr.Error())
	})

	t.Run("pending is unknown", func(t *testing.T) {
		_, err := Parse(params("ReferencePixelX0", "1"), types.AllStudies, tags)
		requireParseError(t, err, errors.KindUnknownAttribute)
	})

	t.Run("erroneous tag is reported", func(t *testing.T) {
		expr, err := Parse(params("SeriesDate", "20200101-"), types.AllSeries, tags)
		require.NoError(t, err)
		assert.Equal(t, []string{"SeriesDate"}, expr.ErroneousTags())
		_, ok := expr.Conditions()[0].(RangeMatch[time.Time])
		assert.True(t, ok)
	})

	t.Run("private tag by path", func(t *testing.T) {
		expr, err := Parse(params("00091001", "x"), types.AllStudies, tags)
		require.NoError(t, err)
		assert.Equal(t, "ACME", expr.Conditions()[0].Tag().PrivateCreator)
	})

	t.Run("invalid double", func(t *testing.T) {
		_, err := Parse(params("FloatPixelPaddingValue", "abc"), types.AllStudies, tags)
		perr := requireParseError(t, err, errors.KindMalformedValue)
		assert.Equal(t, "invalid query: attribute FloatPixelPaddingValue has an invalid double value 'abc'", perr.Error())
	})
}

func TestParse_SequencePath(t *testing.T) {
	inner := types.QueryTag{
		Path:   types.TagPath{Sequence: dicom.TagReferencedStudySequence, Tag: dicom.TagStudyInstanceUID},
		VR:     dicom.VR_UI,
		Level:  types.LevelStudy,
		Origin: types.OriginExtended,
		Status: types.StatusReady,
	}
	tags := append(CoreQueryTags(), inner)

	expr, err := Parse(params("ReferencedStudySequence.StudyInstanceUID", "1.2.3"), types.AllStudies, tags)
	require.NoError(t, err)
	_, ok := expr.Condition(inner.Path)
	assert.True(t, ok)

	expr, err = Parse(params("00081110.0020000D", "1.2.3"), types.AllStudies, tags)
	require.NoError(t, err)
	_, ok = expr.Condition(inner.Path)
	assert.True(t, ok)
}

func TestExpression_AccessorsReturnCopies(t *testing.T) {
	expr, err := Parse(params("includefield", "StudyDescription", "PatientID", "1"), types.AllStudies, CoreQueryTags())
	require.NoError(t, err)

	fields := expr.IncludeFields()
	fields[0] = types.PathOf(dicom.TagModality)
	conditions := expr.Conditions()
	conditions[0] = nil

	assert.Equal(t, types.PathOf(dicom.TagStudyDescription), expr.IncludeFields()[0])
	assert.NotNil(t, expr.Conditions()[0])
}
