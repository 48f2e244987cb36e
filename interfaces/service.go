// Package interfaces contains the contracts between the query engine, its
// storage collaborators and the transport layer.
package interfaces

import (
	"context"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

// QueryRequest is one QIDO-RS search as received by the transport layer.
type QueryRequest struct {
	Resource          types.ResourceType
	Parameters        query.Parameters
	StudyInstanceUID  string // set for study-scoped routes
	SeriesInstanceUID string // set for series-scoped routes
}

// QueryResult holds the projected datasets of a search, plus the identifiers
// of filtered attributes with known indexing errors.
type QueryResult struct {
	Datasets      []*dicom.Dataset
	ErroneousTags []string
}

// QueryHandler serves QIDO-RS searches.
type QueryHandler interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
}
