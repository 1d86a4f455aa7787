package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halmon/internal/models"
)

func TestHistoryBufferEvictsOldestFirst(t *testing.T) {
	hb := NewHistoryBuffer(MaxHistory)
	base := time.Now()
	for i := 0; i < 1005; i++ {
		hb.Push(models.ResourceCPU, models.MetricSnapshot{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Value:     float64(i),
		})
	}

	require.Equal(t, 1000, hb.Len(models.ResourceCPU))
	values := hb.Snapshot(0).Values(models.ResourceCPU)
	require.Len(t, values, 1000)
	for i, v := range values {
		assert.Equal(t, float64(i+5), v)
	}
}

func TestHistoryBufferSnapshotLastN(t *testing.T) {
	hb := NewHistoryBuffer(10)
	for i := 0; i < 4; i++ {
		hb.Record(sampleOf(float64(i), float64(10+i), -1))
	}

	snap := hb.Snapshot(2)
	assert.Equal(t, []float64{2, 3}, snap.Values(models.ResourceCPU))
	assert.Equal(t, []float64{12, 13}, snap.Values(models.ResourceMemory))
	assert.Empty(t, snap.Values(models.ResourceDisk), "absent readings are not recorded")

	assert.Len(t, hb.Snapshot(100).CPU, 4)
}

func TestHistoryBufferReset(t *testing.T) {
	hb := NewHistoryBuffer(3)
	hb.Record(sampleOf(1, 2, 3))
	hb.Reset()
	assert.Zero(t, hb.Len(models.ResourceCPU))
	assert.Equal(t, 3, hb.Capacity())
}

func TestHistoryBufferConcurrentReaders(t *testing.T) {
	hb := NewHistoryBuffer(50)
	var wg sync.WaitGroup
	done := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := hb.Snapshot(0)
				assert.LessOrEqual(t, len(snap.CPU), 50)
			}
		}()
	}

	for i := 0; i < 500; i++ {
		hb.Record(sampleOf(float64(i%100), 1, 1))
	}
	close(done)
	wg.Wait()
	assert.Equal(t, 50, hb.Len(models.ResourceCPU))
}
