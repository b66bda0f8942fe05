package record

// Typed partial updates. A nil field means "leave the current value alone";
// a non-nil field overwrites it. The compiler, not a reflective merge,
// decides which fields are mutable.

// PatientUpdate is a partial update for a patient's own fields. Nested
// collections are mutated through their own operations, never here.
type PatientUpdate struct {
	Name             *string
	DateOfBirth      *string
	Gender           *string
	Contact          *Contact
	EmergencyContact *EmergencyContact
	MedicalHistory   *string
	Allergies        *[]string
	Conditions       *[]string
	Surgeries        *[]string
	NotableEvents    *[]string
	PrimaryDoctorID  *string
}

func (u PatientUpdate) apply(p *Patient) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = *u.DateOfBirth
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Contact != nil {
		p.Contact = *u.Contact
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = *u.EmergencyContact
	}
	if u.MedicalHistory != nil {
		p.MedicalHistory = *u.MedicalHistory
	}
	if u.Allergies != nil {
		p.Allergies = cloneStrings(*u.Allergies)
	}
	if u.Conditions != nil {
		p.Conditions = cloneStrings(*u.Conditions)
	}
	if u.Surgeries != nil {
		p.Surgeries = cloneStrings(*u.Surgeries)
	}
	if u.NotableEvents != nil {
		p.NotableEvents = cloneStrings(*u.NotableEvents)
	}
	if u.PrimaryDoctorID != nil {
		p.PrimaryDoctorID = *u.PrimaryDoctorID
	}
}

// DoctorUpdate is a partial update for a doctor.
type DoctorUpdate struct {
	Name      *string
	Specialty *string
	Contact   *Contact
}

func (u DoctorUpdate) apply(d *Doctor) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Specialty != nil {
		d.Specialty = *u.Specialty
	}
	if u.Contact != nil {
		c := *u.Contact
		d.Contact = &c
	}
}

// RecordUpdate is a partial update for a medical record. Documents are
// mutated through document operations.
type RecordUpdate struct {
	Date           *string
	DoctorID       *string
	Complaint      *string
	Investigations *string
	Diagnosis      *string
	Prescription   *string
	Notes          *string
	AIOverview     *string
}

func (u RecordUpdate) apply(r *MedicalRecord) {
	if u.Date != nil {
		r.Date = *u.Date
	}
	if u.DoctorID != nil {
		r.DoctorID = *u.DoctorID
	}
	if u.Complaint != nil {
		r.Complaint = *u.Complaint
	}
	if u.Investigations != nil {
		r.Investigations = *u.Investigations
	}
	if u.Diagnosis != nil {
		r.Diagnosis = *u.Diagnosis
	}
	if u.Prescription != nil {
		r.Prescription = *u.Prescription
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	if u.AIOverview != nil {
		r.AIOverview = *u.AIOverview
	}
}

// DocumentUpdate renames a document. Type and content are immutable after
// upload.
type DocumentUpdate struct {
	Name *string
}

func (u DocumentUpdate) apply(d *Document) {
	if u.Name != nil {
		d.Name = *u.Name
	}
}

// ReminderUpdate is a partial update for a reminder.
type ReminderUpdate struct {
	Title     *string
	Date      *string
	DueDate   *string
	Time      *string
	Priority  *string
	Completed *bool
}

func (u ReminderUpdate) apply(r *Reminder) {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Date != nil {
		r.Date = *u.Date
	}
	if u.DueDate != nil {
		r.DueDate = *u.DueDate
	}
	if u.Time != nil {
		r.Time = *u.Time
	}
	if u.Priority != nil {
		r.Priority = *u.Priority
	}
	if u.Completed != nil {
		r.Completed = *u.Completed
	}
}

// MedicationUpdate is a partial update for a medication.
type MedicationUpdate struct {
	Name      *string
	Dosage    *string
	Frequency *string
	StartDate *string
	EndDate   *string
	Status    *string
}

func (u MedicationUpdate) apply(m *Medication) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Dosage != nil {
		m.Dosage = *u.Dosage
	}
	if u.Frequency != nil {
		m.Frequency = *u.Frequency
	}
	if u.StartDate != nil {
		m.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		m.EndDate = *u.EndDate
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
}

// AppointmentUpdate is a partial update for an appointment.
type AppointmentUpdate struct {
	Title    *string
	Date     *string
	Time     *string
	DoctorID *string
	Status   *string
	Notes    *string
}

func (u AppointmentUpdate) apply(a *Appointment) {
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Date != nil {
		a.Date = *u.Date
	}
	if u.Time != nil {
		a.Time = *u.Time
	}
	if u.DoctorID != nil {
		a.DoctorID = *u.DoctorID
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.Notes != nil {
		a.Notes = *u.Notes
	}
}
