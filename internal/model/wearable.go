package model

import (
	"time"

	"github.com/lib/pq"
)

// StringArray maps to a Postgres text[] column.
type StringArray = pq.StringArray

// WearableReading is one daily wearable record.
type WearableReading struct {
	ID               int64     `db:"id" json:"-"`
	PatientID        string    `db:"patient_id" json:"patient_id"`
	Timestamp        time.Time `db:"timestamp" json:"timestamp"`
	HeartRate        float64   `db:"heart_rate" json:"heart_rate"`
	StepCount        float64   `db:"step_count" json:"steps"`
	BloodOxygenLevel float64   `db:"blood_oxygen_level" json:"blood_oxygen_level"`
	StressLevel      string    `db:"stress_level" json:"stress_level"`
	ExerciseDuration float64   `db:"exercise_duration" json:"exercise_duration"`
}

// Date formats the reading's day.
func (r WearableReading) Date() string {
	return r.Timestamp.Format("2006-01-02")
}

// AlertPriority orders alerts; lower is more urgent.
type AlertPriority string

const (
	PriorityCritical AlertPriority = "critical"
	PriorityHigh     AlertPriority = "high"
	PriorityMedium   AlertPriority = "medium"
	PriorityLow      AlertPriority = "low"
)

// WearableAlert is a stored alert raised by the wearable analyzer.
type WearableAlert struct {
	ID           string        `db:"id" json:"id"`
	PatientID    string        `db:"patient_id" json:"patient_id"`
	Priority     AlertPriority `db:"priority" json:"severity"`
	Metric       string        `db:"metric" json:"metric"`
	Message      string        `db:"message" json:"message"`
	Significance string        `db:"significance" json:"significance"`
	Snapshot     JSONMap       `db:"snapshot" json:"metrics"`
	CreatedAt    time.Time     `db:"created_at" json:"timestamp"`
}

// WearableSummaryPoint is one day in the wearable summary series.
type WearableSummaryPoint struct {
	Date      string `json:"date"`
	HeartRate int    `json:"heart_rate"`
	Steps     int    `json:"steps"`
}

// SeriesStats summarizes a numeric series.
type SeriesStats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// WearableSummary is the response of the wearable summary endpoint.
type WearableSummary struct {
	PatientID string                 `json:"patient_id"`
	Days      int                    `json:"days"`
	Summary   string                 `json:"summary"`
	Series    []WearableSummaryPoint `json:"series"`
	HeartRate SeriesStats            `json:"heart_rate_stats"`
	Steps     SeriesStats            `json:"steps_stats"`
}

// AlertFinding is an alert produced by the wearable analyzer before it is stored.
type AlertFinding struct {
	Metric       string        `json:"metric"`
	Severity     AlertPriority `json:"severity"`
	Priority     int           `json:"priority"`
	Message      string        `json:"message"`
	Values       []float64     `json:"values"`
	Threshold    *float64      `json:"threshold,omitempty"`
	Significance string        `json:"clinical_significance"`
}

type OxygenTrend struct {
	Average            float64 `json:"average"`
	Minimum            float64 `json:"minimum"`
	Maximum            float64 `json:"maximum"`
	StdDev             float64 `json:"std_dev"`
	DaysBelowThreshold int     `json:"days_below_threshold"`
	Threshold          float64 `json:"threshold"`
}

type HeartRateTrend struct {
	Average      float64 `json:"average"`
	Minimum      float64 `json:"minimum"`
	Maximum      float64 `json:"maximum"`
	StdDev       float64 `json:"std_dev"`
	DaysElevated int     `json:"days_elevated"`
}

type ActivityTrend struct {
	AverageSteps    float64 `json:"average_steps"`
	MinimumSteps    float64 `json:"minimum_steps"`
	MaximumSteps    float64 `json:"maximum_steps"`
	LowActivityDays int     `json:"low_activity_days"`
}

type StressTrend struct {
	AverageLevel   string  `json:"average_level"`
	HighStressDays int     `json:"high_stress_days"`
	AverageNumeric float64 `json:"average_numeric"`
}

type ExerciseTrend struct {
	AverageDurationHours float64 `json:"average_duration_hours"`
	TotalHours           float64 `json:"total_hours"`
}

// Trends holds per-metric statistics; metrics without data are omitted.
type Trends struct {
	BloodOxygen *OxygenTrend    `json:"blood_oxygen,omitempty"`
	HeartRate   *HeartRateTrend `json:"heart_rate,omitempty"`
	Activity    *ActivityTrend  `json:"activity,omitempty"`
	Stress      *StressTrend    `json:"stress,omitempty"`
	Exercise    *ExerciseTrend  `json:"exercise,omitempty"`
}

type AlertCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// WearableAnalysis is the outcome of the trend and alert heuristic.
type WearableAnalysis struct {
	Error           string         `json:"error,omitempty"`
	Alerts          []AlertFinding `json:"alerts"`
	Trends          Trends         `json:"trends"`
	Summary         string         `json:"summary"`
	Recommendations []string       `json:"recommendations"`
	AlertCounts     AlertCounts    `json:"alert_counts"`
	DataPoints      int            `json:"data_points_analyzed"`
	PeriodDays      int            `json:"analysis_period_days"`
}

// SimilarPatient is a cohort member with its demographic match score.
type SimilarPatient struct {
	PatientID          string   `json:"patient_id"`
	PatientName        string   `json:"patient_name"`
	Age                int      `json:"age"`
	Gender             string   `json:"gender"`
	MedicalConditions  string   `json:"medical_conditions"`
	SimilarityScore    int      `json:"similarity_score"`
	MatchingCriteria   []string `json:"matching_criteria"`
	AgeDifferenceYears int      `json:"age_difference_years"`
}

type MetricComparison struct {
	Metric        string  `json:"metric"`
	PatientValue  float64 `json:"patient_value"`
	CohortAverage float64 `json:"cohort_average"`
	Status        string  `json:"status"`
}

// CohortComparison places a patient's averages against their cohort.
type CohortComparison struct {
	Summary           string             `json:"summary"`
	ComparisonPoints  []string           `json:"comparison_points"`
	OutlierStatus     string             `json:"outlier_status"`
	CohortSize        int                `json:"cohort_size"`
	MetricComparisons []MetricComparison `json:"metric_comparisons"`
}

// WearableAnalyzeRequest is the body of the wearable analysis endpoint.
type WearableAnalyzeRequest struct {
	Question string `json:"question"`
}

// WearableAnalysisResult is the response of the wearable analysis endpoint.
type WearableAnalysisResult struct {
	PatientID         string           `json:"patient_id"`
	PatientName       string           `json:"patient_name"`
	PatientCondition  string           `json:"patient_condition"`
	Question          string           `json:"question"`
	QuestionType      string           `json:"question_type"`
	Answer            string           `json:"answer"`
	Alerts            []AlertFinding   `json:"alerts"`
	Trends            Trends           `json:"trends"`
	Summary           string           `json:"summary"`
	Recommendations   []string         `json:"recommendations"`
	SimilarPatients   []SimilarPatient `json:"similar_patients"`
	PatientComparison CohortComparison `json:"patient_comparison"`
	ResearchPapers    []Paper          `json:"research_papers"`
	DataPoints        int              `json:"data_points"`
}

// AlertList wraps a patient's stored alerts.
type AlertList struct {
	PatientID string           `json:"patient_id"`
	Alerts    []*WearableAlert `json:"alerts"`
	Count     int              `json:"count"`
}
