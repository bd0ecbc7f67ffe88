package ontology_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

type MockObjectReader struct {
	mock.Mock
}

func (m *MockObjectReader) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func writeSources(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	tbox := filepath.Join(dir, "math_tbox.ttl")
	abox := filepath.Join(dir, "math_abox.ttl")
	require.NoError(t, os.WriteFile(tbox, []byte(testutil.CurriculumTBox), 0o600))
	require.NoError(t, os.WriteFile(abox, []byte(testutil.CurriculumABox), 0o600))
	return tbox, abox
}

func TestLoader_LoadFiles(t *testing.T) {
	tbox, abox := writeSources(t)
	loader := ontology.NewLoader(vocab.DefaultNamespace, nil, tbox, abox)

	snap, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, testutil.CurriculumGraph(t).Len(), snap.Graph.Len())
	assert.Len(t, snap.Sources, 2)
	assert.NotEmpty(t, snap.Version)
	assert.Contains(t, snap.Schema, ":Concept (7)")
	assert.Len(t, snap.Concepts.Concepts(), 7)
}

func TestLoader_BundledData(t *testing.T) {
	loader := ontology.NewLoader(vocab.DefaultNamespace, nil,
		filepath.Join("..", "..", "data", "ontology", "math_tbox.ttl"),
		filepath.Join("..", "..", "data", "knowledge_graph", "math_abox.ttl"),
	)

	snap, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Contains(t, snap.Schema, ":Concept (29)")
	assert.Len(t, snap.Concepts.Concepts(), 29)

	for _, label := range []string{"합성함수의 미분", "이계도함수", "급수"} {
		concept, ok := snap.Concepts.FindConcept(label)
		require.True(t, ok, label)
		assert.Equal(t, "미적분2", snap.Concepts.Hierarchy(concept).SubjectLabel(), label)
	}
}

func TestLoader_VersionIsContentHash(t *testing.T) {
	tbox, abox := writeSources(t)
	loader := ontology.NewLoader(vocab.DefaultNamespace, nil, tbox, abox)
	ctx := context.Background()

	first, err := loader.Load(ctx)
	require.NoError(t, err)
	second, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)

	require.NoError(t, os.WriteFile(abox, []byte(testutil.CurriculumABox+"\n:Extra a :Concept .\n"), 0o600))
	third, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Version, third.Version)
}

func TestLoader_S3Source(t *testing.T) {
	objects := new(MockObjectReader)
	objects.On("GetObject", mock.Anything, "curriculum", "kg/math_abox.ttl").Return([]byte(testutil.CurriculumABox), nil)
	tbox, _ := writeSources(t)
	loader := ontology.NewLoader(vocab.DefaultNamespace, objects, tbox, "s3://curriculum/kg/math_abox.ttl")

	snap, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "s3://curriculum/kg/math_abox.ttl", snap.Sources[1].Location)
	objects.AssertExpectations(t)
}

func TestLoader_Errors(t *testing.T) {
	ctx := context.Background()
	tbox, _ := writeSources(t)

	_, err := ontology.NewLoader(vocab.DefaultNamespace, nil).Load(ctx)
	assert.ErrorIs(t, err, ontology.ErrNoSources)

	_, err = ontology.NewLoader(vocab.DefaultNamespace, nil, tbox, "s3://b/k.ttl").Load(ctx)
	assert.ErrorIs(t, err, ontology.ErrObjectsMissing)

	_, err = ontology.NewLoader(vocab.DefaultNamespace, nil, filepath.Join(t.TempDir(), "missing.ttl")).Load(ctx)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.ttl")
	require.NoError(t, os.WriteFile(bad, []byte("this is not turtle"), 0o600))
	_, err = ontology.NewLoader(vocab.DefaultNamespace, nil, bad).Load(ctx)
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	store := ontology.NewStore(nil)

	_, err := store.Snapshot()
	assert.ErrorIs(t, err, domain.ErrGraphNotLoaded)

	snap := ontology.NewSnapshot(testutil.CurriculumGraph(t), vocab.DefaultNamespace, "", nil)
	assert.Nil(t, store.Swap(snap))
	got, err := store.Snapshot()
	require.NoError(t, err)
	assert.Same(t, snap, got)
	assert.Len(t, snap.Version, 16)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	a := ontology.NewSnapshot(testutil.CurriculumGraph(t), vocab.DefaultNamespace, "a", nil)
	b := ontology.NewSnapshot(testutil.CurriculumGraph(t), vocab.DefaultNamespace, "b", nil)
	store := ontology.NewStore(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := store.Current()
				assert.Contains(t, []string{"a", "b"}, snap.Version)
				assert.Equal(t, a.Graph.Len(), snap.Graph.Len())
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			store.Swap(b)
		} else {
			store.Swap(a)
		}
	}
	wg.Wait()
}

func TestReloader(t *testing.T) {
	tbox, abox := writeSources(t)
	loader := ontology.NewLoader(vocab.DefaultNamespace, nil, tbox, abox)
	store := ontology.NewStore(nil)
	reloader := ontology.NewReloader(loader, store, logger.Nop())
	ctx := context.Background()

	first, changed, err := reloader.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	same, changed, err := reloader.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, first, same)

	require.NoError(t, os.WriteFile(abox, []byte("broken {"), 0o600))
	kept, changed, err := reloader.Reload(ctx)
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Same(t, first, kept)
	assert.Same(t, first, store.Current())

	assert.NoError(t, reloader.ProcessJobs(ctx), "job failures are logged, not returned")
}

func TestReloader_SourceRemoved(t *testing.T) {
	tbox, abox := writeSources(t)
	store := ontology.NewStore(nil)
	reloader := ontology.NewReloader(ontology.NewLoader(vocab.DefaultNamespace, nil, tbox, abox), store, logger.Nop())
	ctx := context.Background()

	_, _, err := reloader.Reload(ctx)
	require.NoError(t, err)
	before := store.Current()

	require.NoError(t, os.Remove(abox))
	_, _, err = reloader.Reload(ctx)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Same(t, before, store.Current())
}
