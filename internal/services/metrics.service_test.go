package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halmon/internal/models"
)

func TestHostSamplerReadings(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewHostSampler(100*time.Millisecond, "").Sample(ctx)
	if err != nil {
		var se *models.SampleError
		require.ErrorAs(t, err, &se, "failures are reported per resource")
	}
	assert.False(t, s.Timestamp.IsZero())

	for _, rt := range models.ResourceTypes {
		if v, ok := s.Percent(rt); ok {
			assert.GreaterOrEqual(t, v, 0.0, rt.String())
			assert.LessOrEqual(t, v, 100.0, rt.String())
		}
	}
	if s.Disk != nil {
		assert.Equal(t, "/", s.Disk.Path)
	}
}

func TestHostSamplerBadDiskPath(t *testing.T) {
	s, err := NewHostSampler(0, "/definitely/not/a/mount/point").Sample(context.Background())
	require.Error(t, err)

	var se *models.SampleError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Failed, models.ResourceDisk)
	assert.Nil(t, s.Disk)
}
