package process

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursebrain/coursebrain/app/core"
	"github.com/coursebrain/coursebrain/app/store"
	"github.com/coursebrain/coursebrain/pkg/ai"
	"github.com/coursebrain/coursebrain/pkg/types"
)

func buildChunks(n int) []*types.ContentChunk {
	chunks := make([]*types.ContentChunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, &types.ContentChunk{
			ID:         fmt.Sprintf("chunk-%d", i),
			ChunkIndex: i,
			Text:       fmt.Sprintf("chunk text %d", i),
		})
	}
	return chunks
}

func TestPendingChunksHonorsResumePoint(t *testing.T) {
	p := &ContentProcess{}
	chunks := buildChunks(25)

	// a crashed run recorded batch 2 onwards as unembedded
	meta := &types.ProcessingMetadata{
		UnembeddedChunks: []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24},
	}

	pending, err := p.pendingChunks(context.Background(), &types.ContentItem{ID: "c1"}, chunks, meta)
	assert.NoError(t, err)
	assert.Len(t, pending, 15)
	assert.Equal(t, 10, pending[0].ChunkIndex)
	assert.Equal(t, 24, pending[len(pending)-1].ChunkIndex)
}

func TestPendingChunksResumeIgnoresStaleIndexes(t *testing.T) {
	p := &ContentProcess{}
	chunks := buildChunks(5)

	// indexes beyond the current chunk set are dropped
	meta := &types.ProcessingMetadata{
		UnembeddedChunks: []int{3, 4, 9},
	}

	pending, err := p.pendingChunks(context.Background(), &types.ContentItem{ID: "c1"}, chunks, meta)
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 4}, chunkIndexes(pending))
}

func TestChunkIndexes(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, chunkIndexes(buildChunks(3)))
	assert.Empty(t, chunkIndexes(nil))
}

// fakeEmbeddingDriver encodes each input's chunk index into its vector,
// parsed back from the buildChunks text. Texts at or past failFrom make
// the whole call fail; failFrom < 0 disables failures.
type fakeEmbeddingDriver struct {
	mu       sync.Mutex
	batches  [][]string
	failFrom int
}

func (d *fakeEmbeddingDriver) Lang() string { return ai.MODEL_BASE_LANGUAGE_EN }

func (d *fakeEmbeddingDriver) EmbedBatch(ctx context.Context, texts []string) (ai.EmbeddingResult, error) {
	d.mu.Lock()
	d.batches = append(d.batches, texts)
	d.mu.Unlock()

	result := ai.EmbeddingResult{Model: "fake-embed"}
	for _, text := range texts {
		var idx int
		if _, err := fmt.Sscanf(text, "chunk text %d", &idx); err != nil {
			return ai.EmbeddingResult{}, err
		}
		if d.failFrom >= 0 && idx >= d.failFrom {
			return ai.EmbeddingResult{}, fmt.Errorf("provider unavailable")
		}
		result.Data = append(result.Data, []float32{float32(idx)})
	}
	return result, nil
}

type capturingEmbeddingStore struct {
	store.ContentEmbeddingStore
	rows []types.ContentEmbedding
}

func (s *capturingEmbeddingStore) BatchCreate(ctx context.Context, datas []types.ContentEmbedding) error {
	s.rows = append(s.rows, datas...)
	return nil
}

type capturingItemStore struct {
	store.ContentItemStore
	meta *types.ProcessingMetadata
}

func (s *capturingItemStore) SetMetadata(ctx context.Context, id string, meta types.ProcessingMetadata) error {
	m := meta
	s.meta = &m
	return nil
}

func newTestEmbeddingRun(driver *fakeEmbeddingDriver, embeddings *capturingEmbeddingStore, items *capturingItemStore) *embeddingRun {
	return &embeddingRun{
		driver:     driver,
		embeddings: embeddings,
		items:      items,
		batchSize:  10,
		batchDelay: time.Millisecond,
		timeout:    time.Second,
		maxRetries: 2,
	}
}

func TestEmbedKeepsVectorChunkAlignment(t *testing.T) {
	driver := &fakeEmbeddingDriver{failFrom: -1}
	embeddings := &capturingEmbeddingStore{}
	items := &capturingItemStore{}
	run := newTestEmbeddingRun(driver, embeddings, items)

	chunks := buildChunks(25)
	meta := &types.ProcessingMetadata{}

	err := run.embed(context.Background(), &types.ContentItem{ID: "c1"}, chunks, meta)
	require.NoError(t, err)

	require.Len(t, driver.batches, 3)
	assert.Len(t, driver.batches[0], 10)
	assert.Len(t, driver.batches[2], 5)

	// the driver encodes each input's index into its vector, so any
	// misalignment between batch and stored rows shows up here
	require.Len(t, embeddings.rows, 25)
	for i, row := range embeddings.rows {
		assert.Equal(t, i, row.ChunkIndex)
		assert.Equal(t, chunks[i].ID, row.ChunkID)
		assert.Equal(t, float32(row.ChunkIndex), row.Embedding.Slice()[0])
	}

	assert.Nil(t, items.meta)
}

func TestEmbedRecordsResumePointOnBatchFailure(t *testing.T) {
	driver := &fakeEmbeddingDriver{failFrom: 10}
	embeddings := &capturingEmbeddingStore{}
	items := &capturingItemStore{}
	run := newTestEmbeddingRun(driver, embeddings, items)

	chunks := buildChunks(25)
	meta := &types.ProcessingMetadata{}

	err := run.embed(context.Background(), &types.ContentItem{ID: "c1"}, chunks, meta)
	require.Error(t, err)

	// the first batch stays committed
	require.Len(t, embeddings.rows, 10)
	assert.Equal(t, 0, embeddings.rows[0].ChunkIndex)
	assert.Equal(t, 9, embeddings.rows[9].ChunkIndex)

	// everything from the failed batch on is recorded for the next run
	require.NotNil(t, items.meta)
	assert.Equal(t, chunkIndexes(chunks[10:]), items.meta.UnembeddedChunks)
	assert.Equal(t, items.meta.UnembeddedChunks, meta.UnembeddedChunks)

	// the failing batch was retried, the third batch never attempted
	require.Len(t, driver.batches, 3)
	assert.Equal(t, driver.batches[1], driver.batches[2])
}

func TestRunTimeoutStaysUnderLockTTL(t *testing.T) {
	assert.Less(t, runTimeout, core.LockTTL)
}

func TestNewProcessRequestWithoutWorker(t *testing.T) {
	prev := contentProcess
	contentProcess = nil
	defer func() { contentProcess = prev }()

	assert.Nil(t, NewProcessRequest(types.ContentItem{ID: "c1"}))
	assert.Nil(t, NewEmbeddingOnlyRequest(types.ContentItem{ID: "c1"}))
}
