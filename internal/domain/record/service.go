package record

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Indexer receives per-patient re-index triggers after mutations. The
// search index implements it; tests plug in fakes.
type Indexer interface {
	IndexPatient(p *Patient)
	RemovePatient(patientID string)
}

// nopIndexer is used when no search index is attached.
type nopIndexer struct{}

func (nopIndexer) IndexPatient(*Patient) {}
func (nopIndexer) RemovePatient(string) {}

// Service is the operation surface consumers call. It composes store
// mutations with the behaviors the store itself deliberately does not own:
// input validation, select-after-add, the doctor referential-integrity
// check, derived reminders for appointments, and search re-indexing.
type Service struct {
	store  *Store
	index  Indexer
	logger zerolog.Logger
}

// NewService wires a service around a store. index may be nil.
func NewService(store *Store, index Indexer, logger zerolog.Logger) *Service {
	if index == nil {
		index = nopIndexer{}
	}
	return &Service{store: store, index: index, logger: logger}
}

// Store exposes the underlying store for read paths and snapshots.
func (s *Service) Store() *Store { return s.store }

func (s *Service) reindex(patientID string) {
	if p, ok := s.store.Patient(patientID); ok {
		s.index.IndexPatient(p)
	}
}

// AddPatient validates, stores, selects the new patient and indexes it.
func (s *Service) AddPatient(p *Patient) (*Patient, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("patient name is required")
	}
	stored, err := s.store.AddPatient(p)
	if err != nil {
		return nil, err
	}
	s.store.SelectPatient(stored.ID)
	s.index.IndexPatient(stored)
	s.logger.Info().Str("patient_id", stored.ID).Msg("patient added")
	return stored, nil
}

// UpdatePatient applies a partial update and re-indexes on change.
func (s *Service) UpdatePatient(id string, u PatientUpdate) (*Patient, bool) {
	p, ok := s.store.UpdatePatient(id, u)
	if ok {
		s.index.IndexPatient(p)
	}
	return p, ok
}

// DeletePatient cascades and drops the patient's index entries.
func (s *Service) DeletePatient(id string) bool {
	if !s.store.DeletePatient(id) {
		return false
	}
	s.index.RemovePatient(id)
	s.logger.Info().Str("patient_id", id).Msg("patient deleted")
	return true
}

// AddDoctor stores a new doctor.
func (s *Service) AddDoctor(d *Doctor) (*Doctor, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("doctor name is required")
	}
	return s.store.AddDoctor(d), nil
}

// DeleteDoctor refuses to remove a doctor that any patient or record still
// references. This check lives here, not in the store: the store's delete
// is an unconditional primitive and this service owns the invariant.
func (s *Service) DeleteDoctor(id string) error {
	if _, ok := s.store.Doctor(id); !ok {
		return &NotFoundError{Kind: "doctor", ID: id}
	}
	if by, referenced := s.store.DoctorReferenced(id); referenced {
		return &ReferentialIntegrityError{DoctorID: id, ReferencedBy: by}
	}
	s.store.DeleteDoctor(id)
	s.logger.Info().Str("doctor_id", id).Msg("doctor deleted")
	return nil
}

// AddRecord stores a new visit record, selects it and re-indexes.
func (s *Service) AddRecord(patientID string, r *MedicalRecord) (*MedicalRecord, error) {
	if r.Date == "" {
		return nil, fmt.Errorf("record date is required")
	}
	stored, err := s.store.AddRecord(patientID, r)
	if err != nil {
		return nil, err
	}
	s.store.SelectPatient(patientID)
	s.store.SelectRecord(stored.ID)
	s.reindex(patientID)
	s.logger.Info().Str("patient_id", patientID).Str("record_id", stored.ID).Msg("record added")
	return stored, nil
}

// UpdateRecord applies a partial update and re-indexes on change.
func (s *Service) UpdateRecord(patientID, recordID string, u RecordUpdate) (*MedicalRecord, bool) {
	r, ok := s.store.UpdateRecord(patientID, recordID, u)
	if ok {
		s.reindex(patientID)
	}
	return r, ok
}

// DeleteRecord removes a record (and its documents) and re-indexes.
func (s *Service) DeleteRecord(patientID, recordID string) bool {
	if !s.store.DeleteRecord(patientID, recordID) {
		return false
	}
	s.reindex(patientID)
	return true
}

// AddDocument attaches a document and re-indexes the patient.
func (s *Service) AddDocument(patientID, recordID string, d *Document) (*Document, error) {
	if d.Type != DocumentTypeImage && d.Type != DocumentTypePDF {
		return nil, fmt.Errorf("document type must be %q or %q", DocumentTypeImage, DocumentTypePDF)
	}
	stored, err := s.store.AddDocument(patientID, recordID, d)
	if err != nil {
		return nil, err
	}
	s.reindex(patientID)
	return stored, nil
}

// DeleteDocument detaches a document and returns it so the caller can
// release its blob.
func (s *Service) DeleteDocument(patientID, recordID, documentID string) (*Document, bool) {
	d, ok := s.store.DeleteDocument(patientID, recordID, documentID)
	if ok {
		s.reindex(patientID)
	}
	return d, ok
}

// AddAppointment stores an appointment and, when asked, derives a reminder
// for it. The reminder carries the appointment id as a tag; the link is
// one-way and never enforced afterwards.
func (s *Service) AddAppointment(patientID string, a *Appointment, withReminder bool) (*Appointment, error) {
	if a.Title == "" {
		return nil, fmt.Errorf("appointment title is required")
	}
	stored, err := s.store.AddAppointment(patientID, a)
	if err != nil {
		return nil, err
	}
	if withReminder {
		_, err = s.store.AddReminder(patientID, &Reminder{
			Title:         "Appointment: " + stored.Title,
			Date:          stored.Date,
			DueDate:       stored.Date,
			Time:          stored.Time,
			Priority:      PriorityMedium,
			AppointmentID: stored.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("derive reminder: %w", err)
		}
	}
	return stored, nil
}

// ReindexAll rebuilds the search index from the whole store, entity by
// entity. Called after restore or bulk load.
func (s *Service) ReindexAll() {
	for _, p := range s.store.Patients() {
		s.index.IndexPatient(p)
	}
}
