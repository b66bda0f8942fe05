package record

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store is the in-memory source of truth for a session. It is explicitly
// constructed and passed to consumers; there is no package-level instance.
// All access is guarded by an RWMutex, mutations are atomic, and every
// entity that crosses the store boundary is deep-copied, so callers can
// never mutate nested collections behind the store's back.
//
// Mutations do not touch the session cursor except to keep it valid:
// deleting a selected entity clears the selection. Selecting after an add
// is the caller's job (see Service).
type Store struct {
	mu       sync.RWMutex
	patients []*Patient
	doctors  []*Doctor
	cursor   Cursor
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Reset drops all entities and clears the cursor.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = nil
	s.doctors = nil
	s.cursor = Cursor{}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ---------------------------------------------------------------------------
// Patients
// ---------------------------------------------------------------------------

// AddPatient stores a deep copy of p under a fresh id and returns the stored
// patient. Two patients may not share a normalized (case-insensitive,
// trimmed) name; the returned DuplicateEntityError carries the id of the
// patient already holding it.
func (s *Store) AddPatient(p *Patient) (*Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := normalizeName(p.Name)
	for _, existing := range s.patients {
		if normalizeName(existing.Name) == norm {
			return nil, &DuplicateEntityError{Kind: "patient", ConflictingID: existing.ID}
		}
	}

	stored := p.Clone()
	stored.ID = uuid.New().String()
	if stored.Records == nil {
		stored.Records = []*MedicalRecord{}
	}
	if stored.Reminders == nil {
		stored.Reminders = []*Reminder{}
	}
	if stored.CurrentMedications == nil {
		stored.CurrentMedications = []*Medication{}
	}
	if stored.Appointments == nil {
		stored.Appointments = []*Appointment{}
	}
	s.patients = append(s.patients, stored)
	return stored.Clone(), nil
}

// Patient returns a deep copy of the patient, or false if the id is unknown.
func (s *Store) Patient(id string) (*Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findPatient(id)
	if p == nil {
		return nil, false
	}
	return p.Clone(), true
}

// Patients returns deep copies of all patients in insertion order.
func (s *Store) Patients() []*Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Patient, len(s.patients))
	for i, p := range s.patients {
		out[i] = p.Clone()
	}
	return out
}

// UpdatePatient applies a partial update. An unknown id is a silent no-op:
// ok is false and nothing changes.
func (s *Store) UpdatePatient(id string, u PatientUpdate) (*Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(id)
	if p == nil {
		return nil, false
	}
	u.apply(p)
	return p.Clone(), true
}

// DeletePatient removes the patient and, by ownership, every nested record,
// document, reminder, medication and appointment. A selection pointing at
// the deleted patient is cleared.
func (s *Store) DeletePatient(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.patients {
		if p.ID == id {
			s.patients = append(s.patients[:i], s.patients[i+1:]...)
			if s.cursor.PatientID == id {
				s.cursor = Cursor{}
			}
			return true
		}
	}
	return false
}

func (s *Store) findPatient(id string) *Patient {
	for _, p := range s.patients {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Doctors
// ---------------------------------------------------------------------------

// AddDoctor stores a deep copy of d under a fresh id.
func (s *Store) AddDoctor(d *Doctor) *Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := d.Clone()
	stored.ID = uuid.New().String()
	s.doctors = append(s.doctors, stored)
	return stored.Clone()
}

// Doctor returns a deep copy of the doctor, or false if unknown.
func (s *Store) Doctor(id string) (*Doctor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.doctors {
		if d.ID == id {
			return d.Clone(), true
		}
	}
	return nil, false
}

// Doctors returns deep copies of all doctors in insertion order.
func (s *Store) Doctors() []*Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Doctor, len(s.doctors))
	for i, d := range s.doctors {
		out[i] = d.Clone()
	}
	return out
}

// UpdateDoctor applies a partial update; unknown ids are a silent no-op.
func (s *Store) UpdateDoctor(id string, u DoctorUpdate) (*Doctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doctors {
		if d.ID == id {
			u.apply(d)
			return d.Clone(), true
		}
	}
	return nil, false
}

// DeleteDoctor removes the doctor unconditionally. The referential
// integrity check is the caller's contract: call DoctorReferenced first
// (Service does). The store does not re-derive it here.
func (s *Store) DeleteDoctor(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.doctors {
		if d.ID == id {
			s.doctors = append(s.doctors[:i], s.doctors[i+1:]...)
			return true
		}
	}
	return false
}

// DoctorReferenced reports whether any patient or medical record still
// points at the doctor, and by what kind of referrer.
func (s *Store) DoctorReferenced(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.PrimaryDoctorID == id {
			return "patient", true
		}
		for _, r := range p.Records {
			if r.DoctorID == id {
				return "record", true
			}
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Medical records
// ---------------------------------------------------------------------------

// AddRecord inserts a new record at the head of the patient's record list
// (the list order is most-recent-first). Two records for the same patient
// may not share the (doctorID, date, complaint) triple.
func (s *Store) AddRecord(patientID string, r *MedicalRecord) (*MedicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, &NotFoundError{Kind: "patient", ID: patientID}
	}

	for _, existing := range p.Records {
		if existing.DoctorID == r.DoctorID &&
			existing.Date == r.Date &&
			normalizeName(existing.Complaint) == normalizeName(r.Complaint) {
			return nil, &DuplicateEntityError{Kind: "record", ConflictingID: existing.ID}
		}
	}

	stored := r.Clone()
	stored.ID = uuid.New().String()
	stored.IsNew = true
	if stored.Documents == nil {
		stored.Documents = []*Document{}
	}
	p.Records = append([]*MedicalRecord{stored}, p.Records...)

	out := stored.Clone()
	out.IsNew = true
	return out, nil
}

// Record returns a deep copy of one record of the patient.
func (s *Store) Record(patientID, recordID string) (*MedicalRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.findRecord(patientID, recordID)
	if r == nil {
		return nil, false
	}
	out := r.Clone()
	out.IsNew = r.IsNew
	return out, true
}

// UpdateRecord applies a partial update; unknown ids are a silent no-op.
func (s *Store) UpdateRecord(patientID, recordID string, u RecordUpdate) (*MedicalRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRecord(patientID, recordID)
	if r == nil {
		return nil, false
	}
	u.apply(r)
	return r.Clone(), true
}

// MarkRecordSeen clears the session-only IsNew highlight.
func (s *Store) MarkRecordSeen(patientID, recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.findRecord(patientID, recordID); r != nil {
		r.IsNew = false
	}
}

// DeleteRecord removes the record and its documents. If the record was
// selected, the record cursor falls back to the patient's first record.
func (s *Store) DeleteRecord(patientID, recordID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return false
	}
	for i, r := range p.Records {
		if r.ID == recordID {
			p.Records = append(p.Records[:i], p.Records[i+1:]...)
			if s.cursor.PatientID == patientID && s.cursor.RecordID == recordID {
				s.cursor.RecordID = firstRecordID(p)
			}
			return true
		}
	}
	return false
}

func (s *Store) findRecord(patientID, recordID string) *MedicalRecord {
	p := s.findPatient(patientID)
	if p == nil {
		return nil
	}
	for _, r := range p.Records {
		if r.ID == recordID {
			return r
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// AddDocument attaches a document to a record.
func (s *Store) AddDocument(patientID, recordID string, d *Document) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, &NotFoundError{Kind: "patient", ID: patientID}
	}
	r := s.findRecord(patientID, recordID)
	if r == nil {
		return nil, &NotFoundError{Kind: "record", ID: recordID}
	}
	stored := *d
	stored.ID = uuid.New().String()
	r.Documents = append(r.Documents, &stored)
	out := stored
	return &out, nil
}

// UpdateDocument applies a partial update; unknown ids are a silent no-op.
func (s *Store) UpdateDocument(patientID, recordID, documentID string, u DocumentUpdate) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRecord(patientID, recordID)
	if r == nil {
		return nil, false
	}
	for _, d := range r.Documents {
		if d.ID == documentID {
			u.apply(d)
			out := *d
			return &out, true
		}
	}
	return nil, false
}

// DeleteDocument detaches a document from its record. The caller owns
// releasing any blob the document referenced.
func (s *Store) DeleteDocument(patientID, recordID, documentID string) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRecord(patientID, recordID)
	if r == nil {
		return nil, false
	}
	for i, d := range r.Documents {
		if d.ID == documentID {
			r.Documents = append(r.Documents[:i], r.Documents[i+1:]...)
			out := *d
			return &out, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Reminders, medications, appointments
// ---------------------------------------------------------------------------

// AddReminder stores a reminder owned by the patient.
func (s *Store) AddReminder(patientID string, r *Reminder) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, &NotFoundError{Kind: "patient", ID: patientID}
	}
	stored := *r
	stored.ID = uuid.New().String()
	if stored.Priority == "" {
		stored.Priority = PriorityMedium
	}
	p.Reminders = append(p.Reminders, &stored)
	out := stored
	return &out, nil
}

// UpdateReminder applies a partial update; unknown ids are a silent no-op.
func (s *Store) UpdateReminder(patientID, reminderID string, u ReminderUpdate) (*Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, false
	}
	for _, r := range p.Reminders {
		if r.ID == reminderID {
			u.apply(r)
			out := *r
			return &out, true
		}
	}
	return nil, false
}

// DeleteReminder removes a reminder.
func (s *Store) DeleteReminder(patientID, reminderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return false
	}
	for i, r := range p.Reminders {
		if r.ID == reminderID {
			p.Reminders = append(p.Reminders[:i], p.Reminders[i+1:]...)
			return true
		}
	}
	return false
}

// AddMedication stores a medication owned by the patient.
func (s *Store) AddMedication(patientID string, m *Medication) (*Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, &NotFoundError{Kind: "patient", ID: patientID}
	}
	stored := *m
	stored.ID = uuid.New().String()
	if stored.Status == "" {
		stored.Status = MedicationActive
	}
	p.CurrentMedications = append(p.CurrentMedications, &stored)
	out := stored
	return &out, nil
}

// UpdateMedication applies a partial update; unknown ids are a silent no-op.
func (s *Store) UpdateMedication(patientID, medicationID string, u MedicationUpdate) (*Medication, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, false
	}
	for _, m := range p.CurrentMedications {
		if m.ID == medicationID {
			u.apply(m)
			out := *m
			return &out, true
		}
	}
	return nil, false
}

// DeleteMedication removes a medication.
func (s *Store) DeleteMedication(patientID, medicationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return false
	}
	for i, m := range p.CurrentMedications {
		if m.ID == medicationID {
			p.CurrentMedications = append(p.CurrentMedications[:i], p.CurrentMedications[i+1:]...)
			return true
		}
	}
	return false
}

// AddAppointment stores an appointment owned by the patient.
func (s *Store) AddAppointment(patientID string, a *Appointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, &NotFoundError{Kind: "patient", ID: patientID}
	}
	stored := *a
	stored.ID = uuid.New().String()
	if stored.Status == "" {
		stored.Status = AppointmentScheduled
	}
	p.Appointments = append(p.Appointments, &stored)
	out := stored
	return &out, nil
}

// UpdateAppointment applies a partial update; unknown ids are a silent no-op.
func (s *Store) UpdateAppointment(patientID, appointmentID string, u AppointmentUpdate) (*Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return nil, false
	}
	for _, a := range p.Appointments {
		if a.ID == appointmentID {
			u.apply(a)
			out := *a
			return &out, true
		}
	}
	return nil, false
}

// DeleteAppointment removes an appointment. Reminders derived from it stay;
// the AppointmentID tag is informational only.
func (s *Store) DeleteAppointment(patientID, appointmentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPatient(patientID)
	if p == nil {
		return false
	}
	for i, a := range p.Appointments {
		if a.ID == appointmentID {
			p.Appointments = append(p.Appointments[:i], p.Appointments[i+1:]...)
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// Snapshot returns a deep copy of all patients and doctors, taken atomically
// under the store lock. IsNew markers are cleared in the copy; the snapshot
// is safe to hand to encryption or persistence running concurrently with
// further mutations.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Patients: make([]*Patient, len(s.patients)),
		Doctors:  make([]*Doctor, len(s.doctors)),
	}
	for i, p := range s.patients {
		snap.Patients[i] = p.Clone()
	}
	for i, d := range s.doctors {
		snap.Doctors[i] = d.Clone()
	}
	return snap
}

// Counts returns the number of patients and doctors.
func (s *Store) Counts() (patients, doctors int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patients), len(s.doctors)
}
