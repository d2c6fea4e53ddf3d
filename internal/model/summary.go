package model

// PatientSummary is the one-paragraph profile summary of a patient.
type PatientSummary struct {
	PatientID string      `json:"patient_id"`
	Patient   interface{} `json:"patient"`
	Summary   string      `json:"summary"`
}

// ConditionSummaryRequest is the body of the condition overview endpoint.
type ConditionSummaryRequest struct {
	Condition string `json:"condition"`
}

type ConditionSummary struct {
	Condition string `json:"condition"`
	Summary   string `json:"summary"`
}

// QuestionnaireDigest is the one-paragraph summary of a pre-visit questionnaire.
type QuestionnaireDigest struct {
	PatientID string `json:"patient_id"`
	Summary   string `json:"summary"`
}
