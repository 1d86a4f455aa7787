package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halmon/internal/models"
)

func alarm(rt models.ResourceType, threshold int) models.Alarm {
	return models.Alarm{Type: rt, Threshold: threshold, Active: true}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		alarm  models.Alarm
		sample models.Sample
		want   bool
	}{
		{"above", alarm(models.ResourceCPU, 80), sampleOf(85, 0, 0), true},
		{"equal", alarm(models.ResourceCPU, 80), sampleOf(80, 0, 0), true},
		{"below", alarm(models.ResourceCPU, 80), sampleOf(79.9, 0, 0), false},
		{"other resource", alarm(models.ResourceDisk, 10), sampleOf(99, 99, 5), false},
		{"absent", alarm(models.ResourceMemory, 1), sampleOf(50, -1, 50), false},
		{"inactive", models.Alarm{Type: models.ResourceCPU, Threshold: 10}, sampleOf(50, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Matches(tt.alarm, tt.sample)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAbsentReadingsNeverTrigger(t *testing.T) {
	alarms := []models.Alarm{
		alarm(models.ResourceCPU, 1),
		alarm(models.ResourceMemory, 1),
		alarm(models.ResourceDisk, 1),
	}
	empty := models.Sample{}
	assert.Empty(t, EvaluateAll(alarms, empty))
	assert.Empty(t, EvaluateHighest(alarms, empty))
}

func TestHighestAlarmWins(t *testing.T) {
	alarms := []models.Alarm{alarm(models.ResourceCPU, 70), alarm(models.ResourceCPU, 90)}
	sample := sampleOf(95, 0, 0)

	push := EvaluateHighest(alarms, sample)
	require.Len(t, push, 1)
	assert.Equal(t, 90, push[0].Alarm.Threshold)
	assert.Equal(t, 95.0, push[0].Value)

	bulk := EvaluateAll(alarms, sample)
	require.Len(t, bulk, 2)
	assert.Equal(t, 70, bulk[0].Alarm.Threshold)
	assert.Equal(t, 90, bulk[1].Alarm.Threshold)
}

func TestEvaluateHighestOnePerResource(t *testing.T) {
	alarms := []models.Alarm{
		alarm(models.ResourceDisk, 40),
		alarm(models.ResourceCPU, 10),
		alarm(models.ResourceCPU, 20),
		alarm(models.ResourceMemory, 99),
		alarm(models.ResourceDisk, 60),
	}
	got := EvaluateHighest(alarms, sampleOf(50, 50, 50))
	require.Len(t, got, 2)
	assert.Equal(t, alarm(models.ResourceCPU, 20), got[0].Alarm)
	assert.Equal(t, alarm(models.ResourceDisk, 40), got[1].Alarm)
}

func TestTriggeredAlarmText(t *testing.T) {
	got := EvaluateAll([]models.Alarm{alarm(models.ResourceMemory, 75)}, sampleOf(0, 80.25, 0))
	require.Len(t, got, 1)
	assert.Equal(t, "MEMORY usage alarm", got[0].Subject())
	assert.Equal(t, "WARNING! MEMORY USAGE EXCEEDS 75% (current 80.2%)", got[0].Message())
}
