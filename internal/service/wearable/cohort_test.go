package wearable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/model"
)

func TestScoreCohort(t *testing.T) {
	ref := &model.Patient{PatientID: "1", Age: 40, Gender: "Female", MedicalConditions: "Asthma"}
	candidates := []*model.Patient{
		{PatientID: "1", Age: 40, Gender: "Female", MedicalConditions: "Asthma"},
		{PatientID: "4", Age: 40, Gender: "female", MedicalConditions: "COPD"},
		{PatientID: "3", Age: 42, Gender: "Male", MedicalConditions: "asthma"},
		{PatientID: "2", Age: 45, Gender: "Female", MedicalConditions: "Asthma"},
		{PatientID: "5", Age: 40, Gender: "Female", MedicalConditions: "Asthma"},
	}

	got := ScoreCohort(ref, candidates, CohortAgeRange)
	require.Len(t, got, 4)

	ids := make([]string, len(got))
	scores := make([]int, len(got))
	for i, p := range got {
		ids[i] = p.PatientID
		scores[i] = p.SimilarityScore
	}
	assert.Equal(t, []string{"5", "2", "3", "4"}, ids)
	assert.Equal(t, []int{100, 80, 62, 50}, scores)
	assert.Equal(t, []string{"age", "condition"}, got[2].MatchingCriteria)
	assert.Equal(t, 2, got[2].AgeDifferenceYears)
}

func TestCompare(t *testing.T) {
	cohort := []model.SimilarPatient{{PatientID: "2"}, {PatientID: "3"}}

	t.Run("no cohort", func(t *testing.T) {
		got := Compare(model.WearableAnalysis{}, nil, 10, "Asthma")
		assert.Equal(t, "Insufficient cohort data for comparison", got.Summary)
		assert.Equal(t, []string{"No similar patients found for comparison"}, got.ComparisonPoints)
		assert.Equal(t, "normal", got.OutlierStatus)
	})

	t.Run("aligned", func(t *testing.T) {
		analysis := model.WearableAnalysis{Trends: model.Trends{
			BloodOxygen: &model.OxygenTrend{Average: 97.2},
			HeartRate:   &model.HeartRateTrend{Average: 72.4},
			Activity:    &model.ActivityTrend{AverageSteps: 7200},
		}}
		got := Compare(analysis, cohort, 30, "Asthma")
		assert.Equal(t, "normal", got.OutlierStatus)
		assert.Equal(t, "Patient's metrics align well with cohort of 2 similar Asthma patients", got.Summary)
		assert.Equal(t, []string{
			"O2 saturation within normal range (97.2%)",
			"Heart rate within expected range (72 BPM)",
		}, got.ComparisonPoints)
		require.Len(t, got.MetricComparisons, 3)
		assert.Equal(t, model.MetricComparison{Metric: "activity_level", PatientValue: 7200, CohortAverage: 6500, Status: "normal"}, got.MetricComparisons[2])
	})

	t.Run("concerning", func(t *testing.T) {
		analysis := model.WearableAnalysis{Trends: model.Trends{
			BloodOxygen: &model.OxygenTrend{Average: 90.4},
			Activity:    &model.ActivityTrend{AverageSteps: 2500},
		}}
		got := Compare(analysis, cohort[:1], 30, "COPD")
		assert.Equal(t, "concerning", got.OutlierStatus)
		assert.Equal(t, "Patient shows some concerning differences compared to 1 similar patient", got.Summary)
		assert.Equal(t, []string{
			"O2 saturation significantly lower (90.4% vs normal 95-100%)",
			"Activity level significantly reduced (2500 steps/day)",
		}, got.ComparisonPoints)
		assert.Equal(t, "below", got.MetricComparisons[0].Status)
	})

	t.Run("critical alerts escalate", func(t *testing.T) {
		analysis := model.WearableAnalysis{
			Trends:      model.Trends{HeartRate: &model.HeartRateTrend{Average: 100}},
			AlertCounts: model.AlertCounts{Critical: 1},
		}
		got := Compare(analysis, cohort, 30, "COPD")
		assert.Equal(t, "critical", got.OutlierStatus)
		assert.Equal(t, "Patient shows critical deviations from typical COPD cohort", got.Summary)
		assert.Equal(t, []string{"Metrics comparable to 2 similar COPD patients"}, got.ComparisonPoints)
		assert.Equal(t, "elevated", got.MetricComparisons[0].Status)
	})
}

func TestQuestionType(t *testing.T) {
	tests := []struct{ question, want string }{
		{"How does she compare to similar patients?", "comparison"},
		{"Any research evidence for this?", "research"},
		{"What should we do next?", "recommendations"},
		{"Are there critical issues?", "alerts"},
		{"Describe the trend over time", "trends"},
		{"Tell me about this patient", "general"},
		{"Is there research on cohort differences?", "comparison"},
		{DefaultQuestion, "alerts"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuestionType(tt.question), tt.question)
	}
}
