package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryParseError(t *testing.T) {
	err := NewQueryParseError(KindDuplicateAttribute, "PatientID", MsgDuplicateAttribute, "PatientID")

	assert.Equal(t, KindDuplicateAttribute, err.Kind)
	assert.Equal(t, "PatientID", err.Parameter)
	assert.Equal(t, "the attribute 'PatientID' is specified more than once", err.Error())
	assert.True(t, IsBadRequest(err))
}

func TestQueryParseError_WrappedKeepsIdentity(t *testing.T) {
	err := Wrap(NewQueryParseError(KindEmptyValue, "Modality", MsgEmptyAttributeValue, "Modality"), "compile query")

	assert.True(t, Is(err, ErrBadRequest))

	var parseErr *QueryParseError
	require.True(t, As(err, &parseErr))
	assert.Equal(t, KindEmptyValue, parseErr.Kind)
}

func TestInvalidIdentifierError(t *testing.T) {
	err := NewInvalidIdentifierError("StudyInstanceUID", "1.02", "component '02' has a leading zero")

	assert.Equal(t, "the StudyInstanceUID '1.02' is invalid: component '02' has a leading zero", err.Error())
	assert.True(t, IsBadRequest(err))
	assert.False(t, IsNotFound(err))
}

func TestIsBadRequest(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrBadRequest, true},
		{"wrapped sentinel", Wrap(ErrBadRequest, "context"), true},
		{"context canceled", context.Canceled, false},
		{"wrapped canceled", Wrap(context.Canceled, "fetch metadata"), false},
		{"plain", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBadRequest(tt.err))
		})
	}
}

func TestQueryErrorKind_String(t *testing.T) {
	assert.Equal(t, "unknown-attribute", KindUnknownAttribute.String())
	assert.Equal(t, "invalid-parameter", KindInvalidParameter.String())
	assert.Equal(t, "unknown", QueryErrorKind(99).String())
}
