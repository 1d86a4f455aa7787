package services

import (
	"time"

	"halmon/internal/models"
)

// Matches reports whether alarm fires for sample and the value it fired on.
// Inactive alarms and absent readings never fire.
func Matches(alarm models.Alarm, sample models.Sample) (float64, bool) {
	if !alarm.Active {
		return 0, false
	}
	v, ok := sample.Percent(alarm.Type)
	if !ok {
		return 0, false
	}
	return v, v >= float64(alarm.Threshold)
}

// EvaluateAll returns every alarm that fires for sample, in alarm order
func EvaluateAll(alarms []models.Alarm, sample models.Sample) []models.TriggeredAlarm {
	now := time.Now()
	var out []models.TriggeredAlarm
	for _, a := range alarms {
		if v, ok := Matches(a, sample); ok {
			out = append(out, models.TriggeredAlarm{Alarm: a, Value: v, Sample: sample, FiredAt: now})
		}
	}
	return out
}

// EvaluateHighest returns at most one alarm per resource type: the firing
// alarm with the highest threshold. Results follow canonical resource order.
func EvaluateHighest(alarms []models.Alarm, sample models.Sample) []models.TriggeredAlarm {
	best := make(map[models.ResourceType]models.TriggeredAlarm, len(models.ResourceTypes))
	for _, t := range EvaluateAll(alarms, sample) {
		if cur, ok := best[t.Alarm.Type]; !ok || t.Alarm.Threshold > cur.Alarm.Threshold {
			best[t.Alarm.Type] = t
		}
	}

	out := make([]models.TriggeredAlarm, 0, len(best))
	for _, rt := range models.ResourceTypes {
		if t, ok := best[rt]; ok {
			out = append(out, t)
		}
	}
	return out
}
