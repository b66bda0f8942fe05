// Package record holds the entity model and in-memory store at the core of
// the health keeper: Patient and Doctor aggregates, the nested clinical
// entities a patient owns, and the session cursor over them.
package record

// Document types.
const (
	DocumentTypeImage = "image"
	DocumentTypePDF   = "pdf"
)

// Reminder priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Medication statuses.
const (
	MedicationActive  = "active"
	MedicationPaused  = "paused"
	MedicationStopped = "stopped"
)

// Appointment statuses.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Contact is a plain contact block, shared by patients and doctors.
// All dates in this package are "YYYY-MM-DD" strings, matching the form
// fields they are edited through.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// EmergencyContact names who to call and how.
type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Relation string `json:"relation,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Patient is the aggregate root. It exclusively owns every nested entity in
// its collections; no nested entity is shared between patients.
type Patient struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	DateOfBirth      string           `json:"dateOfBirth,omitempty"`
	Gender           string           `json:"gender,omitempty"`
	Contact          Contact          `json:"contact,omitempty"`
	EmergencyContact EmergencyContact `json:"emergencyContact,omitempty"`
	MedicalHistory   string           `json:"medicalHistory,omitempty"`
	Allergies        []string         `json:"allergies,omitempty"`
	Conditions       []string         `json:"conditions,omitempty"`
	Surgeries        []string         `json:"surgeries,omitempty"`
	NotableEvents    []string         `json:"notableEvents,omitempty"`
	PrimaryDoctorID  string           `json:"primaryDoctorId,omitempty"`

	Records            []*MedicalRecord `json:"records"`
	Reminders          []*Reminder      `json:"reminders"`
	CurrentMedications []*Medication    `json:"currentMedications"`
	Appointments       []*Appointment   `json:"appointments"`
}

// Doctor is referenced, never owned: Patient.PrimaryDoctorID and
// MedicalRecord.DoctorID point at it by id.
type Doctor struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Specialty string   `json:"specialty,omitempty"`
	Contact   *Contact `json:"contact,omitempty"`
}

// MedicalRecord is one visit. Records are kept most-recent-first; the list
// order is the ordering, not a derived sort.
type MedicalRecord struct {
	ID             string      `json:"id"`
	Date           string      `json:"date"`
	DoctorID       string      `json:"doctorId,omitempty"`
	Complaint      string      `json:"complaint,omitempty"`
	Investigations string      `json:"investigations,omitempty"`
	Diagnosis      string      `json:"diagnosis,omitempty"`
	Prescription   string      `json:"prescription,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	Documents      []*Document `json:"documents"`
	AIOverview     string      `json:"aiOverview,omitempty"`

	// IsNew marks a record created during this session, for highlighting.
	// It never survives a snapshot: Clone and Snapshot force it false.
	IsNew bool `json:"-"`
}

// Document is a file attached to a record. ContentRef is either an inline
// "data:" URL or a "blob:<id>" reference into the device blob store.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ContentRef string `json:"contentRef,omitempty"`
}

// Reminder is a patient-owned to-do. AppointmentID tags reminders that
// were derived from an appointment; nothing enforces the back-link.
type Reminder struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Date          string `json:"date,omitempty"`
	DueDate       string `json:"dueDate,omitempty"`
	Time          string `json:"time,omitempty"`
	Priority      string `json:"priority,omitempty"`
	Completed     bool   `json:"completed"`
	AppointmentID string `json:"appointmentId,omitempty"`
}

// Medication is a currently-tracked drug for a patient.
type Medication struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Appointment is a scheduled visit.
type Appointment struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	DoctorID string `json:"doctorId,omitempty"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Snapshot is a deep copy of the store contents: the backup payload and the
// persistence image.
type Snapshot struct {
	Patients []*Patient `json:"patients"`
	Doctors  []*Doctor  `json:"doctors"`
}

// ---------------------------------------------------------------------------
// Deep copies
// ---------------------------------------------------------------------------

// Clone returns a deep copy of the patient and everything it owns.
func (p *Patient) Clone() *Patient {
	if p == nil {
		return nil
	}
	out := *p
	out.Allergies = cloneStrings(p.Allergies)
	out.Conditions = cloneStrings(p.Conditions)
	out.Surgeries = cloneStrings(p.Surgeries)
	out.NotableEvents = cloneStrings(p.NotableEvents)

	out.Records = make([]*MedicalRecord, len(p.Records))
	for i, r := range p.Records {
		out.Records[i] = r.Clone()
	}
	out.Reminders = make([]*Reminder, len(p.Reminders))
	for i, r := range p.Reminders {
		c := *r
		out.Reminders[i] = &c
	}
	out.CurrentMedications = make([]*Medication, len(p.CurrentMedications))
	for i, m := range p.CurrentMedications {
		c := *m
		out.CurrentMedications[i] = &c
	}
	out.Appointments = make([]*Appointment, len(p.Appointments))
	for i, a := range p.Appointments {
		c := *a
		out.Appointments[i] = &c
	}
	return &out
}

// Clone returns a deep copy of the record and its documents, with the
// session-only IsNew marker cleared.
func (r *MedicalRecord) Clone() *MedicalRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.IsNew = false
	out.Documents = make([]*Document, len(r.Documents))
	for i, d := range r.Documents {
		c := *d
		out.Documents[i] = &c
	}
	return &out
}

// Clone returns a deep copy of the doctor.
func (d *Doctor) Clone() *Doctor {
	if d == nil {
		return nil
	}
	out := *d
	if d.Contact != nil {
		c := *d.Contact
		out.Contact = &c
	}
	return &out
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Patients: make([]*Patient, len(s.Patients)),
		Doctors:  make([]*Doctor, len(s.Doctors)),
	}
	for i, p := range s.Patients {
		out.Patients[i] = p.Clone()
	}
	for i, d := range s.Doctors {
		out.Doctors[i] = d.Clone()
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
