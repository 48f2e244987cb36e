package interfaces

import (
	"context"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

// QueryTagSource supplies the current catalog of core and extended query
// tags, including the lifecycle status and error count of extended tags.
// The catalog is fetched once per request and never cached.
type QueryTagSource interface {
	GetQueryTags(ctx context.Context) ([]types.QueryTag, error)
}

// QueryStore executes a compiled expression. The order of the returned
// identifiers is not relied upon.
type QueryStore interface {
	Query(ctx context.Context, expr *query.Expression) ([]types.InstanceIdentifier, error)
}

// MetadataStore returns the full, unfiltered attribute set of one instance.
type MetadataStore interface {
	GetMetadata(ctx context.Context, id types.InstanceIdentifier) (*dicom.Dataset, error)
}

// Indexer ingests the queryable attributes of an instance.
type Indexer interface {
	Index(ctx context.Context, ds *dicom.Dataset) (types.InstanceIdentifier, error)
}

// MetadataWriter persists the full attribute set of an instance.
type MetadataWriter interface {
	PutMetadata(ctx context.Context, id types.InstanceIdentifier, ds *dicom.Dataset) error
}
