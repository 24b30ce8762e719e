package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// ring of a,b plus two leaf consumers of b with identical shape.
func profileGraph() (*depgraph.Graph, []depgraph.Cycle) {
	b := depgraph.NewGraphBuilder(depgraph.BuilderOptions{})
	for _, e := range [][2]string{{"a", "b"}, {"b", "a"}, {"c", "b"}, {"d", "b"}} {
		b.AddDependency(depgraph.DependencyRecord{SourceModule: e[0], TargetModule: e[1]})
	}
	g := b.Build()
	return g, depgraph.NewCycleDetector(g, "").Detect()
}

func TestProfile(t *testing.T) {
	g, cycles := profileGraph()
	docs := Documents("shop", g, cycles)
	require.Len(t, docs, 4)

	byModule := map[string]Document{}
	for _, d := range docs {
		byModule[d.Module] = d
		assert.Len(t, d.Vector, Dimensions)
	}

	// b: Ca=3 (a, c, d), Ce=1, I=0.25, on the cycle; max coupling is 4.
	b := byModule["b"].Vector
	assert.InDelta(t, 0.25, b[0], 1e-6)
	assert.InDelta(t, 0.75, b[2], 1e-6)
	assert.InDelta(t, 0.75, b[3], 1e-6)
	assert.InDelta(t, 0.25, b[4], 1e-6)
	assert.Equal(t, float32(1), b[5])

	c := byModule["c"].Vector
	assert.Equal(t, float32(1), c[0])
	assert.Equal(t, float32(0), c[5])
	assert.Equal(t, "1", byModule["c"].Metadata["efferent"])
	assert.Equal(t, byModule["c"].Vector, byModule["d"].Vector)
}

func TestProfile_NoCoupling(t *testing.T) {
	v := Profile(&depgraph.ModuleNode{Name: "x"}, 0, false)
	assert.Equal(t, make([]float32, Dimensions), v)
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("shop", "api"), PointID("shop", "api"))
	assert.NotEqual(t, PointID("shop", "api"), PointID("blog", "api"))
	assert.Len(t, PointID("shop", "api"), 36)
}

func TestIndexer_Similar(t *testing.T) {
	ctx := context.Background()
	g, cycles := profileGraph()
	ix := NewIndexer(NewMemory())

	n, err := ix.Index(ctx, "shop", g, cycles)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	res, err := ix.Similar(ctx, "shop", "c", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "d", res[0].Module)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
}

func TestIndexer_SimilarUnknownModule(t *testing.T) {
	_, err := NewIndexer(NewMemory()).Similar(context.Background(), "shop", "ghost", 3)
	assert.Error(t, err)
}

type failingRepo struct{ MemoryRepository }

func (*failingRepo) Upsert(context.Context, []Document) error { return errors.New("unavailable") }

func TestIndexer_UpsertError(t *testing.T) {
	g, cycles := profileGraph()
	_, err := NewIndexer(&failingRepo{}).Index(context.Background(), "shop", g, cycles)
	assert.ErrorContains(t, err, "unavailable")
}

func TestMemoryRepository_ProjectScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	require.NoError(t, repo.Upsert(ctx, []Document{
		{ID: "1", Project: "shop", Module: "a", Vector: []float32{1, 0}},
		{ID: "2", Project: "blog", Module: "b", Vector: []float32{1, 0}},
	}))
	res, err := repo.Search(ctx, "shop", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].Module)
}
