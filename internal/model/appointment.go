package model

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no-show"
)

// AppointmentStatuses lists the accepted statuses in display order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusNoShow,
}

// Valid reports whether s is an accepted status.
func (s AppointmentStatus) Valid() bool {
	for _, v := range AppointmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID          string            `db:"id" json:"id"`
	DoctorID    string            `db:"doctor_id" json:"doctor_id"`
	DoctorName  string            `db:"doctor_name" json:"doctor_name"`
	PatientID   string            `db:"patient_id" json:"patient_id"`
	PatientName string            `db:"patient_name" json:"patient_name"`
	Date        string            `db:"date" json:"date"`
	Time        string            `db:"time" json:"time"`
	Type        string            `db:"type" json:"type"`
	Status      AppointmentStatus `db:"status" json:"status"`
	Notes       string            `db:"notes" json:"notes,omitempty"`
}

// AppointmentList wraps a doctor's or a patient's appointments.
type AppointmentList struct {
	DoctorID     string         `json:"doctor_id,omitempty"`
	PatientID    string         `json:"patient_id,omitempty"`
	Appointments []*Appointment `json:"appointments"`
	Count        int            `json:"count"`
}

// AppointmentStatusUpdated acknowledges a status change.
type AppointmentStatusUpdated struct {
	Message       string            `json:"message"`
	AppointmentID string            `json:"appointment_id"`
	Status        AppointmentStatus `json:"status"`
}
