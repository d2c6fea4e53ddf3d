package wearable

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/patientiq/dashboard-api/internal/model"
)

const (
	recentWindow      = 7
	hrWarning         = 100.0
	hrCritical        = 120.0
	lowActivitySteps  = 3000.0
	highStressLevel   = 3
	highO2Days        = 3
	elevatedHRDays    = 5
	lowActivityDays   = 5
	highStressDays    = 4
	defaultStressRank = 2
)

var stressRank = map[string]float64{"Low": 1, "Medium": 2, "High": 3}

// Thresholds returns the critical and warning O2 saturation limits for a
// condition.
func Thresholds(condition string) (critical, warning float64) {
	c := strings.ToLower(condition)
	critical = 90
	if strings.Contains(c, "copd") {
		critical = 88
	}
	warning = 94
	for _, pulmonary := range []string{"asthma", "copd", "fibrosis"} {
		if strings.Contains(c, pulmonary) {
			warning = 92
			break
		}
	}
	return critical, warning
}

// Analyze derives trends, prioritized alerts and recommendations from
// readings in chronological order. The recent window is the last seven
// values of each metric. Zero values count as missing.
func Analyze(readings []*model.WearableReading, condition string) model.WearableAnalysis {
	if len(readings) == 0 {
		return model.WearableAnalysis{
			Error:           "No wearable data provided or invalid format",
			Alerts:          []model.AlertFinding{},
			Recommendations: []string{},
			Summary:         "No analysis performed",
		}
	}

	var heartRates, oxygen, steps, stress, exercise []float64
	for _, r := range readings {
		if r == nil {
			continue
		}
		if r.HeartRate != 0 {
			heartRates = append(heartRates, r.HeartRate)
		}
		if r.BloodOxygenLevel != 0 {
			oxygen = append(oxygen, r.BloodOxygenLevel)
		}
		if r.StepCount != 0 {
			steps = append(steps, r.StepCount)
		}
		if r.StressLevel != "" {
			rank, ok := stressRank[r.StressLevel]
			if !ok {
				rank = defaultStressRank
			}
			stress = append(stress, rank)
		}
		if r.ExerciseDuration != 0 {
			exercise = append(exercise, r.ExerciseDuration)
		}
	}

	o2Critical, o2Warning := Thresholds(condition)
	var alerts []model.AlertFinding
	var trends model.Trends

	if len(oxygen) > 0 {
		avg, lo, hi := mean(oxygen), minOf(oxygen), maxOf(oxygen)
		recent := lastN(oxygen, recentWindow)
		below := countIf(recent, func(v float64) bool { return v < o2Warning })

		trends.BloodOxygen = &model.OxygenTrend{
			Average:            round(avg, 2),
			Minimum:            round(lo, 2),
			Maximum:            round(hi, 2),
			StdDev:             round(stdDev(oxygen), 2),
			DaysBelowThreshold: below,
			Threshold:          o2Warning,
		}

		switch {
		case lo < o2Critical:
			alerts = append(alerts, finding("blood_oxygen_level", model.PriorityCritical, 1,
				fmt.Sprintf("CRITICAL: O2 saturation dropped to %s%% (below %s%%)", pyFloat(lo), intStr(o2Critical)),
				recent, o2Critical, "Immediate attention required for "+orDefault(condition, "patient")))
		case below >= highO2Days:
			alerts = append(alerts, finding("blood_oxygen_level", model.PriorityHigh, 2,
				fmt.Sprintf("O2 saturation below %s%% for %d of last 7 days", intStr(o2Warning), below),
				recent, o2Warning, "Concerning pattern for "+orDefault(condition, "pulmonary conditions")))
		case avg < o2Warning:
			alerts = append(alerts, finding("blood_oxygen_level", model.PriorityMedium, 3,
				fmt.Sprintf("Average O2 saturation at %.1f%% (below %s%%)", avg, intStr(o2Warning)),
				recent, o2Warning, "Monitor closely"))
		}
	}

	if len(heartRates) > 0 {
		peak := maxOf(heartRates)
		recent := lastN(heartRates, recentWindow)
		elevated := countIf(recent, func(v float64) bool { return v > hrWarning })

		trends.HeartRate = &model.HeartRateTrend{
			Average:      round(mean(heartRates), 1),
			Minimum:      round(minOf(heartRates), 1),
			Maximum:      round(peak, 1),
			StdDev:       round(stdDev(heartRates), 1),
			DaysElevated: elevated,
		}

		if peak > hrCritical {
			alerts = append(alerts, finding("heart_rate", model.PriorityHigh, 2,
				fmt.Sprintf("Peak heart rate at %s BPM (above %s BPM)", pyFloat(peak), intStr(hrCritical)),
				recent, hrCritical, "Evaluate for cardiac stress or arrhythmia"))
		} else if elevated >= elevatedHRDays {
			alerts = append(alerts, finding("heart_rate", model.PriorityMedium, 3,
				fmt.Sprintf("Elevated heart rate (>%s BPM) for %d of last 7 days", intStr(hrWarning), elevated),
				recent, hrWarning, "May indicate increased cardiac workload"))
		}
	}

	if len(steps) > 0 {
		recent := lastN(steps, recentWindow)
		low := countIf(recent, func(v float64) bool { return v < lowActivitySteps })

		trends.Activity = &model.ActivityTrend{
			AverageSteps:    round(mean(steps), 0),
			MinimumSteps:    round(minOf(steps), 0),
			MaximumSteps:    round(maxOf(steps), 0),
			LowActivityDays: low,
		}

		if low >= lowActivityDays {
			alerts = append(alerts, finding("activity_level", model.PriorityMedium, 4,
				fmt.Sprintf("Low activity (<%s steps) for %d of last 7 days", intStr(lowActivitySteps), low),
				recent, lowActivitySteps, "Reduced mobility may indicate symptom worsening"))
		}
	}

	if len(stress) > 0 {
		avg := mean(stress)
		recent := lastN(stress, recentWindow)
		high := countIf(recent, func(v float64) bool { return v >= highStressLevel })

		label := "High"
		if avg < 1.5 {
			label = "Low"
		} else if avg < 2.5 {
			label = "Medium"
		}
		trends.Stress = &model.StressTrend{AverageLevel: label, HighStressDays: high, AverageNumeric: round(avg, 2)}

		if high >= highStressDays {
			alerts = append(alerts, model.AlertFinding{
				Metric:       "stress_level",
				Severity:     model.PriorityLow,
				Priority:     5,
				Message:      fmt.Sprintf("High stress levels for %d of last 7 days", high),
				Values:       recent,
				Significance: "Stress can exacerbate respiratory conditions",
			})
		}
	}

	if len(exercise) > 0 {
		trends.Exercise = &model.ExerciseTrend{
			AverageDurationHours: round(mean(exercise), 2),
			TotalHours:           round(sum(exercise), 2),
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Priority < alerts[j].Priority })
	if alerts == nil {
		alerts = []model.AlertFinding{}
	}

	counts := countAlerts(alerts)
	return model.WearableAnalysis{
		Alerts:          alerts,
		Trends:          trends,
		Summary:         summaryLine(counts),
		Recommendations: recommend(alerts),
		AlertCounts:     counts,
		DataPoints:      len(readings),
		PeriodDays:      len(readings),
	}
}

func finding(metric string, severity model.AlertPriority, priority int, msg string, values []float64, threshold float64, significance string) model.AlertFinding {
	t := threshold
	return model.AlertFinding{
		Metric:       metric,
		Severity:     severity,
		Priority:     priority,
		Message:      msg,
		Values:       values,
		Threshold:    &t,
		Significance: significance,
	}
}

func countAlerts(alerts []model.AlertFinding) model.AlertCounts {
	var c model.AlertCounts
	for _, a := range alerts {
		switch a.Severity {
		case model.PriorityCritical:
			c.Critical++
		case model.PriorityHigh:
			c.High++
		case model.PriorityMedium:
			c.Medium++
		default:
			c.Low++
		}
	}
	return c
}

func summaryLine(c model.AlertCounts) string {
	switch {
	case c.Critical > 0:
		return fmt.Sprintf("⚠️ %d CRITICAL alert(s) requiring immediate attention", c.Critical)
	case c.High > 0:
		return fmt.Sprintf("⚠️ %d HIGH priority alert(s) detected", c.High)
	case c.Medium > 0:
		return fmt.Sprintf("ℹ️ %d MEDIUM priority alert(s) - monitor closely", c.Medium)
	default:
		return "✓ No significant alerts - metrics within acceptable ranges"
	}
}

// recommend maps the top three alerts to follow-up actions, without
// duplicates.
func recommend(alerts []model.AlertFinding) []string {
	seen := make(map[string]bool)
	out := []string{}
	add := func(recs ...string) {
		for _, r := range recs {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	for _, a := range alerts[:min(len(alerts), 3)] {
		switch a.Metric {
		case "blood_oxygen_level":
			add("Consider pulmonary function tests and review oxygen therapy needs",
				"Evaluate for respiratory infection or condition exacerbation")
		case "heart_rate":
			add("Consider ECG and cardiac evaluation",
				"Review medications that may affect heart rate")
		case "activity_level":
			add("Assess for symptom worsening limiting mobility",
				"Consider pulmonary rehabilitation referral")
		}
	}
	return out
}

// Stats summarizes a series; an empty series yields zero values.
func Stats(values []float64) model.SeriesStats {
	if len(values) == 0 {
		return model.SeriesStats{}
	}
	return model.SeriesStats{
		Average: round(mean(values), 1),
		Min:     minOf(values),
		Max:     maxOf(values),
		Count:   len(values),
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return sum(v) / float64(len(v))
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// stdDev is the sample standard deviation; fewer than two values give 0.
func stdDev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(v)-1))
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func lastN(v []float64, n int) []float64 {
	if len(v) <= n {
		return append([]float64(nil), v...)
	}
	return append([]float64(nil), v[len(v)-n:]...)
}

func countIf(v []float64, pred func(float64) bool) int {
	n := 0
	for _, x := range v {
		if pred(x) {
			n++
		}
	}
	return n
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// pyFloat prints a reading the way the dashboard has always shown it:
// shortest form, with a trailing ".0" for whole numbers.
func pyFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func intStr(v float64) string {
	return strconv.Itoa(int(v))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
