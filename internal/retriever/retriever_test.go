package retriever

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcsynth/internal/model"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func openTestRetriever(t *testing.T, embedder Embedder) *Retriever {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")
	r, err := Open(path, embedder)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRetrieveOnNilRetrieverReturnsEmpty(t *testing.T) {
	var r *Retriever
	neighbors := r.Retrieve(context.Background(), "any statement", 5)
	assert.Empty(t, neighbors)
}

func TestRetrieveWithNoEmbedderConfiguredReturnsEmpty(t *testing.T) {
	r := openTestRetriever(t, nil)
	neighbors := r.Retrieve(context.Background(), "any statement", 5)
	assert.Empty(t, neighbors)
}

func TestAddThenRetrieveFindsNearestNeighborBruteForce(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"two sum problem":       {1, 0, 0},
		"unrelated graph problem": {0, 1, 0},
	}}
	r := openTestRetriever(t, embedder)

	schemaA := model.FormatSchema{AlgorithmType: "two-pointer"}
	schemaB := model.FormatSchema{AlgorithmType: "graph-bfs"}

	r.Add(context.Background(), "two sum problem", schemaA)
	r.Add(context.Background(), "unrelated graph problem", schemaB)

	embedder.vectors["query like two sum"] = []float32{0.9, 0.1, 0}
	neighbors := r.Retrieve(context.Background(), "query like two sum", 1)

	require.Len(t, neighbors, 1)
	assert.Equal(t, "two sum problem", neighbors[0].StatementExcerpt)
	assert.Equal(t, "two-pointer", neighbors[0].FormatSchema.AlgorithmType)
}

func TestRetrieveCapsResultsAtK(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0.8, 0.2, 0},
	}}
	r := openTestRetriever(t, embedder)
	r.Add(context.Background(), "a", model.FormatSchema{})
	r.Add(context.Background(), "b", model.FormatSchema{})
	r.Add(context.Background(), "c", model.FormatSchema{})

	neighbors := r.Retrieve(context.Background(), "a", 2)
	assert.Len(t, neighbors, 2)
}

func TestRetrieveOnEmbedFailureReturnsEmpty(t *testing.T) {
	embedder := &fakeEmbedder{err: assert.AnError}
	r := openTestRetriever(t, embedder)
	neighbors := r.Retrieve(context.Background(), "anything", 5)
	assert.Empty(t, neighbors)
}

func TestAddOnEmbedFailureIsANoOp(t *testing.T) {
	embedder := &fakeEmbedder{err: assert.AnError}
	r := openTestRetriever(t, embedder)
	r.Add(context.Background(), "never embeds", model.FormatSchema{})

	var count int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM precedents").Scan(&count))
	assert.Equal(t, 0, count)
}
