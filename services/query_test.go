package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/interfaces"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

type fakeTagSource struct {
	tags  []types.QueryTag
	err   error
	calls atomic.Int32
}

func (f *fakeTagSource) GetQueryTags(ctx context.Context) ([]types.QueryTag, error) {
	f.calls.Add(1)
	return f.tags, f.err
}

type fakeQueryStore struct {
	ids   []types.InstanceIdentifier
	err   error
	got   *query.Expression
	calls atomic.Int32
}

func (f *fakeQueryStore) Query(ctx context.Context, expr *query.Expression) ([]types.InstanceIdentifier, error) {
	f.calls.Add(1)
	f.got = expr
	return f.ids, f.err
}

type fakeMetadataStore struct {
	records map[string]*dicom.Dataset
	failOn  string
	err     error
	fetch   func(ctx context.Context) error

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeMetadataStore) GetMetadata(ctx context.Context, id types.InstanceIdentifier) (*dicom.Dataset, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.fetch != nil {
		if err := f.fetch(ctx); err != nil {
			return nil, err
		}
	}
	if id.SOPInstanceUID == f.failOn {
		return nil, f.err
	}
	return f.records[id.SOPInstanceUID], nil
}

func instance(study, sop, patientID, description string) (types.InstanceIdentifier, *dicom.Dataset) {
	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagStudyInstanceUID, dicom.VR_UI, []string{study})
	ds.AddElement(dicom.TagSOPInstanceUID, dicom.VR_UI, []string{sop})
	ds.AddElement(dicom.TagPatientID, dicom.VR_LO, []string{patientID})
	ds.AddElement(dicom.TagStudyDescription, dicom.VR_LO, []string{description})
	return types.InstanceIdentifier{StudyInstanceUID: study, SeriesInstanceUID: study + ".1", SOPInstanceUID: sop}, ds
}

func newFixture(n int) ([]types.InstanceIdentifier, map[string]*dicom.Dataset) {
	ids := make([]types.InstanceIdentifier, 0, n)
	records := make(map[string]*dicom.Dataset, n)
	for i := 0; i < n; i++ {
		sop := "1.2.3.1." + string(rune('1'+i))
		id, ds := instance("1.2.3", sop, "P"+string(rune('1'+i)), "HEAD")
		ids = append(ids, id)
		records[sop] = ds
	}
	return ids, records
}

func studyRequest(pairs ...string) interfaces.QueryRequest {
	var params query.Parameters
	for i := 0; i+1 < len(pairs); i += 2 {
		params = params.Add(pairs[i], pairs[i+1])
	}
	return interfaces.QueryRequest{Resource: types.AllStudies, Parameters: params}
}

func TestQueryService_ProjectsEveryMatch(t *testing.T) {
	ids, records := newFixture(3)
	erroneous := types.QueryTag{
		Path:       types.PathOf(dicom.Tag{Group: 0x0028, Element: 0x0122}),
		VR:         dicom.VR_FL,
		Keyword:    "FloatPixelPaddingValue",
		Level:      types.LevelStudy,
		Origin:     types.OriginExtended,
		Status:     types.StatusReady,
		ErrorCount: 2,
	}
	tags := &fakeTagSource{tags: append(query.CoreQueryTags(), erroneous)}
	store := &fakeQueryStore{ids: ids}
	metadata := &fakeMetadataStore{records: records}

	svc := NewQueryService(tags, store, metadata, WithLogger(zaptest.NewLogger(t)))
	result, err := svc.Query(context.Background(), studyRequest("PatientID", "P1", "FloatPixelPaddingValue", "0"))
	require.NoError(t, err)

	require.Len(t, result.Datasets, 3)
	for _, ds := range result.Datasets {
		_, hasDescription := ds.GetElement(dicom.TagStudyDescription)
		assert.False(t, hasDescription)
		_, hasSOP := ds.GetElement(dicom.TagSOPInstanceUID)
		assert.False(t, hasSOP)
		assert.NotEmpty(t, ds.GetString(dicom.TagPatientID))
	}
	assert.Equal(t, []string{"FloatPixelPaddingValue"}, result.ErroneousTags)
	assert.Equal(t, int32(3), metadata.calls.Load())
	assert.Len(t, store.got.Conditions(), 2)

	// stored records are left untouched
	assert.Equal(t, "HEAD", records[ids[0].SOPInstanceUID].GetString(dicom.TagStudyDescription))
}

func TestQueryService_InvalidRouteIdentifier(t *testing.T) {
	tests := []struct {
		name string
		req  interfaces.QueryRequest
		uid  string
	}{
		{"empty study", interfaces.QueryRequest{Resource: types.StudySeries}, "StudyInstanceUID"},
		{"leading zero study", interfaces.QueryRequest{Resource: types.StudyInstances, StudyInstanceUID: "1.02"}, "StudyInstanceUID"},
		{"bad series", interfaces.QueryRequest{Resource: types.StudySeriesInstances, StudyInstanceUID: "1.2", SeriesInstanceUID: "1.a"}, "SeriesInstanceUID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := &fakeTagSource{tags: query.CoreQueryTags()}
			svc := NewQueryService(tags, &fakeQueryStore{}, &fakeMetadataStore{})

			_, err := svc.Query(context.Background(), tt.req)
			require.Error(t, err)
			var idErr *errors.InvalidIdentifierError
			require.True(t, errors.As(err, &idErr))
			assert.Equal(t, tt.uid, idErr.Name)
			assert.True(t, errors.IsBadRequest(err))
			assert.Equal(t, int32(0), tags.calls.Load())
		})
	}
}

func TestQueryService_ParseErrorStopsBeforeStore(t *testing.T) {
	store := &fakeQueryStore{}
	svc := NewQueryService(&fakeTagSource{tags: query.CoreQueryTags()}, store, &fakeMetadataStore{})

	_, err := svc.Query(context.Background(), studyRequest("limit", "0"))
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
	assert.Equal(t, int32(0), store.calls.Load())
}

func TestQueryService_EmptyMatchShortCircuits(t *testing.T) {
	metadata := &fakeMetadataStore{}
	svc := NewQueryService(&fakeTagSource{tags: query.CoreQueryTags()}, &fakeQueryStore{}, metadata)

	result, err := svc.Query(context.Background(), studyRequest())
	require.NoError(t, err)
	assert.NotNil(t, result.Datasets)
	assert.Empty(t, result.Datasets)
	assert.Equal(t, int32(0), metadata.calls.Load())
}

func TestQueryService_CollaboratorErrorsPropagate(t *testing.T) {
	sentinel := errors.New("disk on fire")

	t.Run("tag source", func(t *testing.T) {
		svc := NewQueryService(&fakeTagSource{err: sentinel}, &fakeQueryStore{}, &fakeMetadataStore{})
		_, err := svc.Query(context.Background(), studyRequest())
		assert.True(t, errors.Is(err, sentinel))
		assert.False(t, errors.IsBadRequest(err))
	})

	t.Run("store", func(t *testing.T) {
		svc := NewQueryService(&fakeTagSource{}, &fakeQueryStore{err: sentinel}, &fakeMetadataStore{})
		_, err := svc.Query(context.Background(), studyRequest())
		assert.True(t, errors.Is(err, sentinel))
	})

	t.Run("one metadata fetch fails the batch", func(t *testing.T) {
		ids, records := newFixture(4)
		metadata := &fakeMetadataStore{records: records, failOn: ids[2].SOPInstanceUID, err: sentinel}
		svc := NewQueryService(&fakeTagSource{}, &fakeQueryStore{ids: ids}, metadata)

		result, err := svc.Query(context.Background(), studyRequest())
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, sentinel))
	})
}

func TestQueryService_FetchesConcurrently(t *testing.T) {
	const n = 5
	ids, records := newFixture(n)

	var started sync.WaitGroup
	started.Add(n)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	metadata := &fakeMetadataStore{
		records: records,
		fetch: func(ctx context.Context) error {
			started.Done()
			select {
			case <-allStarted:
				return nil
			case <-time.After(5 * time.Second):
				return errors.New("fetches were not issued concurrently")
			}
		},
	}
	svc := NewQueryService(&fakeTagSource{}, &fakeQueryStore{ids: ids}, metadata)

	result, err := svc.Query(context.Background(), studyRequest())
	require.NoError(t, err)
	assert.Len(t, result.Datasets, n)
	assert.Equal(t, int32(n), metadata.maxSeen.Load())
}

func TestQueryService_ConcurrencyCap(t *testing.T) {
	ids, records := newFixture(6)
	metadata := &fakeMetadataStore{
		records: records,
		fetch: func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		},
	}
	svc := NewQueryService(&fakeTagSource{}, &fakeQueryStore{ids: ids}, metadata, WithMaxConcurrentFetches(2))

	result, err := svc.Query(context.Background(), studyRequest())
	require.NoError(t, err)
	assert.Len(t, result.Datasets, 6)
	assert.LessOrEqual(t, metadata.maxSeen.Load(), int32(2))
}

func TestQueryService_CancellationStopsFetches(t *testing.T) {
	ids, records := newFixture(3)
	ctx, cancel := context.WithCancel(context.Background())

	metadata := &fakeMetadataStore{
		records: records,
		fetch: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	svc := NewQueryService(&fakeTagSource{}, &fakeQueryStore{ids: ids}, metadata)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Query(ctx, studyRequest())
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, errors.IsBadRequest(err))
	case <-time.After(5 * time.Second):
		t.Fatal("query did not return after cancellation")
	}
}
