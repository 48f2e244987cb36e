package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/interfaces"
	"github.com/caio-sobreiro/dicomweb/projection"
	"github.com/caio-sobreiro/dicomweb/query"
)

// Option configures a QueryService.
type Option func(*QueryService)

// WithLogger overrides the logger used by the service.
func WithLogger(logger *zap.Logger) Option {
	return func(s *QueryService) {
		s.logger = logger
	}
}

// WithMaxConcurrentFetches caps the number of metadata fetches in flight.
// Zero starts one fetch per match.
func WithMaxConcurrentFetches(n int) Option {
	return func(s *QueryService) {
		s.maxConcurrentFetches = n
	}
}

// QueryService compiles QIDO-RS searches, runs them against the index and
// projects the metadata of every match.
type QueryService struct {
	tags     interfaces.QueryTagSource
	store    interfaces.QueryStore
	metadata interfaces.MetadataStore

	logger               *zap.Logger
	maxConcurrentFetches int
}

var _ interfaces.QueryHandler = (*QueryService)(nil)

// NewQueryService wires the service to its collaborators.
func NewQueryService(tags interfaces.QueryTagSource, store interfaces.QueryStore, metadata interfaces.MetadataStore, opts ...Option) *QueryService {
	s := &QueryService{
		tags:     tags,
		store:    store,
		metadata: metadata,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query executes one search. Client input errors match errors.ErrBadRequest;
// collaborator failures, cancellation included, are returned wrapped.
func (s *QueryService) Query(ctx context.Context, req interfaces.QueryRequest) (*interfaces.QueryResult, error) {
	scope, err := validateScope(req)
	if err != nil {
		return nil, err
	}

	tags, err := s.tags.GetQueryTags(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get query tags")
	}

	expr, err := query.Parse(req.Parameters, req.Resource, tags, scope...)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Compiled query",
		zap.Stringer("resource", req.Resource),
		zap.Int("filters", len(expr.Conditions())),
		zap.Bool("include_all", expr.IncludeAll()),
		zap.Int("limit", expr.Limit()),
		zap.Int("offset", expr.Offset()))

	ids, err := s.store.Query(ctx, expr)
	if err != nil {
		return nil, errors.Wrap(err, "execute query")
	}

	result := &interfaces.QueryResult{
		Datasets:      []*dicom.Dataset{},
		ErroneousTags: expr.ErroneousTags(),
	}
	if len(ids) == 0 {
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.maxConcurrentFetches > 0 {
		g.SetLimit(s.maxConcurrentFetches)
	}
	fetched := make([]*dicom.Dataset, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			ds, err := s.metadata.GetMetadata(gctx, id)
			if err != nil {
				return errors.Wrapf(err, "get metadata of instance %s", id.SOPInstanceUID)
			}
			fetched[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	projector := projection.New(expr)
	result.Datasets = make([]*dicom.Dataset, 0, len(fetched))
	for _, ds := range fetched {
		result.Datasets = append(result.Datasets, projector.Project(ds))
	}

	s.logger.Debug("Query completed",
		zap.Stringer("resource", req.Resource),
		zap.Int("matches", len(result.Datasets)),
		zap.Strings("erroneous_tags", result.ErroneousTags))
	return result, nil
}

func validateScope(req interfaces.QueryRequest) ([]query.ScopeOption, error) {
	var scope []query.ScopeOption
	if req.Resource.IsStudyScoped() {
		if err := dicom.ValidateUID(req.StudyInstanceUID); err != nil {
			return nil, errors.NewInvalidIdentifierError("StudyInstanceUID", req.StudyInstanceUID, err.Error())
		}
		scope = append(scope, query.WithStudy(req.StudyInstanceUID))
	}
	if req.Resource.IsSeriesScoped() {
		if err := dicom.ValidateUID(req.SeriesInstanceUID); err != nil {
			return nil, errors.NewInvalidIdentifierError("SeriesInstanceUID", req.SeriesInstanceUID, err.Error())
		}
		scope = append(scope, query.WithSeries(req.SeriesInstanceUID))
	}
	return scope, nil
}
