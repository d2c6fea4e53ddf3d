package wearable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/patientiq/dashboard-api/internal/model"
)

const (
	CohortAgeRange = 5
	CohortLimit    = 10

	outlierNormal     = "normal"
	outlierConcerning = "concerning"
	outlierCritical   = "critical"
)

// ScoreCohort ranks candidates against the reference patient. The score
// starts at 100 and loses up to 20 points for age distance, 30 for a
// different gender and 50 for a different condition, floored at 0.
func ScoreCohort(ref *model.Patient, candidates []*model.Patient, ageRange int) []model.SimilarPatient {
	if ageRange <= 0 {
		ageRange = CohortAgeRange
	}

	out := make([]model.SimilarPatient, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.PatientID == ref.PatientID {
			continue
		}
		diff := c.Age - ref.Age
		if diff < 0 {
			diff = -diff
		}

		criteria := []string{"age"}
		score := 100 - float64(diff)/float64(ageRange)*20
		if strings.EqualFold(c.Gender, ref.Gender) {
			criteria = append(criteria, "gender")
		} else {
			score -= 30
		}
		if strings.EqualFold(c.MedicalConditions, ref.MedicalConditions) {
			criteria = append(criteria, "condition")
		} else {
			score -= 50
		}
		if score < 0 {
			score = 0
		}

		out = append(out, model.SimilarPatient{
			PatientID:          c.PatientID,
			PatientName:        c.PatientName,
			Age:                c.Age,
			Gender:             c.Gender,
			MedicalConditions:  c.MedicalConditions,
			SimilarityScore:    int(score),
			MatchingCriteria:   criteria,
			AgeDifferenceYears: diff,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].SimilarityScore > out[j].SimilarityScore })
	return out
}

// Compare places the patient's averages against typical cohort values.
func Compare(analysis model.WearableAnalysis, similar []model.SimilarPatient, dataPoints int, condition string) model.CohortComparison {
	cmp := model.CohortComparison{
		OutlierStatus:     outlierNormal,
		CohortSize:        len(similar),
		ComparisonPoints:  []string{},
		MetricComparisons: []model.MetricComparison{},
	}
	if len(similar) == 0 || dataPoints == 0 {
		cmp.Summary = "Insufficient cohort data for comparison"
		cmp.ComparisonPoints = []string{"No similar patients found for comparison"}
		return cmp
	}

	var outliers, alike []string
	flag := func() {
		if cmp.OutlierStatus == outlierNormal {
			cmp.OutlierStatus = outlierConcerning
		}
	}

	if t := analysis.Trends.BloodOxygen; t != nil && t.Average != 0 {
		o2 := t.Average
		if o2 < 92 {
			outliers = append(outliers, fmt.Sprintf("O2 saturation significantly lower (%.1f%% vs normal 95-100%%)", o2))
			cmp.OutlierStatus = outlierConcerning
		} else if o2 >= 95 {
			alike = append(alike, fmt.Sprintf("O2 saturation within normal range (%.1f%%)", o2))
		}
		cmp.MetricComparisons = append(cmp.MetricComparisons, model.MetricComparison{
			Metric:        "blood_oxygen",
			PatientValue:  round(o2, 1),
			CohortAverage: 95.5,
			Status:        statusIf(o2 < 94, "below"),
		})
	}

	if t := analysis.Trends.HeartRate; t != nil && t.Average != 0 {
		hr := t.Average
		if hr > 100 {
			outliers = append(outliers, fmt.Sprintf("Heart rate elevated (%.0f BPM vs normal 60-100 BPM)", hr))
			flag()
		} else if hr < 100 {
			alike = append(alike, fmt.Sprintf("Heart rate within expected range (%.0f BPM)", hr))
		}
		cmp.MetricComparisons = append(cmp.MetricComparisons, model.MetricComparison{
			Metric:        "heart_rate",
			PatientValue:  round(hr, 0),
			CohortAverage: 78,
			Status:        statusIf(hr > 90, "elevated"),
		})
	}

	if t := analysis.Trends.Activity; t != nil && t.AverageSteps != 0 {
		st := t.AverageSteps
		if st < 3000 {
			outliers = append(outliers, fmt.Sprintf("Activity level significantly reduced (%.0f steps/day)", st))
			flag()
		} else if st >= 5000 {
			alike = append(alike, fmt.Sprintf("Maintaining good activity levels (%.0f steps/day)", st))
		}
		cmp.MetricComparisons = append(cmp.MetricComparisons, model.MetricComparison{
			Metric:        "activity_level",
			PatientValue:  round(st, 0),
			CohortAverage: 6500,
			Status:        statusIf(st < 5000, "below"),
		})
	}

	if analysis.AlertCounts.Critical > 0 {
		cmp.OutlierStatus = outlierCritical
	}

	n := len(similar)
	switch {
	case len(outliers) > 0:
		cmp.ComparisonPoints = outliers[:min(len(outliers), 2)]
	case len(alike) > 0:
		cmp.ComparisonPoints = alike[:min(len(alike), 2)]
	default:
		cmp.ComparisonPoints = []string{fmt.Sprintf("Metrics comparable to %d similar %s %s", n, condition, plural(n, "patient"))}
	}

	switch cmp.OutlierStatus {
	case outlierCritical:
		cmp.Summary = fmt.Sprintf("Patient shows critical deviations from typical %s cohort", condition)
	case outlierConcerning:
		cmp.Summary = fmt.Sprintf("Patient shows some concerning differences compared to %d similar %s", n, plural(n, "patient"))
	default:
		cmp.Summary = fmt.Sprintf("Patient's metrics align well with cohort of %d similar %s %s", n, condition, plural(n, "patient"))
	}
	return cmp
}

func statusIf(cond bool, status string) string {
	if cond {
		return status
	}
	return outlierNormal
}

func plural(n int, word string) string {
	if n > 1 {
		return word + "s"
	}
	return word
}
