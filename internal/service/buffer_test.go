package service

import (
	"sync"
	"testing"
	"time"

	"relayhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeBufferStandaloneItemsQueueImmediately(t *testing.T) {
	buffer := NewIntakeBuffer(time.Hour, testLogger())

	buffer.Ingest(item(1, models.MediaKindPhoto))
	buffer.Ingest(item(2, models.MediaKindDocument))

	drained := buffer.DrainAll()
	require.Len(t, drained, 1)
	require.Len(t, drained[1], 2)
	assert.Equal(t, 1, drained[1][0].SourceMessageID)
	assert.Equal(t, 2, drained[1][1].SourceMessageID)
}

func TestIntakeBufferGroupDebounce(t *testing.T) {
	buffer := NewIntakeBuffer(50*time.Millisecond, testLogger())

	a := item(1, models.MediaKindPhoto)
	a.GroupKey = "g1"
	b := item(2, models.MediaKindPhoto)
	b.GroupKey = "g1"
	buffer.Ingest(a)
	buffer.Ingest(b)

	// Still debouncing: the group must not be visible to a drain.
	assert.Empty(t, buffer.DrainAll())

	time.Sleep(150 * time.Millisecond)

	drained := buffer.DrainAll()
	require.Len(t, drained, 1)
	require.Len(t, drained[1], 2)
	assert.Equal(t, 1, drained[1][0].SourceMessageID)
	assert.Equal(t, 2, drained[1][1].SourceMessageID)
}

func TestIntakeBufferGroupKeyRetiresAfterFlush(t *testing.T) {
	buffer := NewIntakeBuffer(30*time.Millisecond, testLogger())

	a := item(1, models.MediaKindPhoto)
	a.GroupKey = "g1"
	buffer.Ingest(a)
	time.Sleep(100 * time.Millisecond)

	require.Len(t, buffer.DrainAll()[1], 1)

	// Same key again starts a fresh group with its own timer.
	b := item(2, models.MediaKindPhoto)
	b.GroupKey = "g1"
	buffer.Ingest(b)
	time.Sleep(100 * time.Millisecond)

	drained := buffer.DrainAll()
	require.Len(t, drained[1], 1)
	assert.Equal(t, 2, drained[1][0].SourceMessageID)
}

func TestIntakeBufferKeepsSendersSeparate(t *testing.T) {
	buffer := NewIntakeBuffer(time.Hour, testLogger())

	a := item(1, models.MediaKindPhoto)
	a.SenderID = 10
	b := item(2, models.MediaKindPhoto)
	b.SenderID = 20
	buffer.Ingest(a)
	buffer.Ingest(b)

	drained := buffer.DrainAll()
	require.Len(t, drained, 2)
	assert.Len(t, drained[10], 1)
	assert.Len(t, drained[20], 1)
}

func TestIntakeBufferDrainIsExactlyOnce(t *testing.T) {
	buffer := NewIntakeBuffer(time.Hour, testLogger())

	const total = 500
	var ingest sync.WaitGroup
	for i := 0; i < total; i++ {
		ingest.Add(1)
		go func(id int) {
			defer ingest.Done()
			it := item(id, models.MediaKindPhoto)
			it.SenderID = int64(id%7 + 1)
			buffer.Ingest(it)
		}(i)
	}

	// Drain concurrently with the ingesters; every item must land in
	// exactly one drain generation.
	seen := make(map[int]bool)
	var drains sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		drains.Add(1)
		go func() {
			defer drains.Done()
			for _, items := range buffer.DrainAll() {
				mu.Lock()
				for _, it := range items {
					assert.False(t, seen[it.SourceMessageID], "item drained twice")
					seen[it.SourceMessageID] = true
				}
				mu.Unlock()
			}
		}()
	}

	ingest.Wait()
	drains.Wait()

	// Final sweep catches whatever the concurrent drains missed.
	for _, items := range buffer.DrainAll() {
		for _, it := range items {
			require.False(t, seen[it.SourceMessageID], "item drained twice")
			seen[it.SourceMessageID] = true
		}
	}
	assert.Len(t, seen, total)
}
