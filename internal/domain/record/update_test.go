package record

import "testing"

func strPtr(s string) *string { return &s }

func TestUpdateRecordRetainsOtherFields(t *testing.T) {
	s := New()
	p := addTestPatient(t, s, "John Doe")
	r := addTestRecord(t, s, p.ID, &MedicalRecord{
		Date:         "2026-01-01",
		Complaint:    "cough",
		Diagnosis:    "bronchitis",
		Prescription: "rest",
	})

	updated, ok := s.UpdateRecord(p.ID, r.ID, RecordUpdate{Diagnosis: strPtr("pneumonia")})
	if !ok {
		t.Fatal("update failed")
	}
	if updated.Diagnosis != "pneumonia" {
		t.Errorf("diagnosis = %q", updated.Diagnosis)
	}
	if updated.Complaint != "cough" || updated.Prescription != "rest" || updated.Date != "2026-01-01" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateMedication(t *testing.T) {
	s := New()
	p := addTestPatient(t, s, "John Doe")
	m, err := s.AddMedication(p.ID, &Medication{Name: "ibuprofen", Dosage: "200mg", Frequency: "daily"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.Status != MedicationActive {
		t.Fatalf("default status = %q, want active", m.Status)
	}

	paused := MedicationPaused
	updated, ok := s.UpdateMedication(p.ID, m.ID, MedicationUpdate{Status: &paused})
	if !ok {
		t.Fatal("update failed")
	}
	if updated.Status != MedicationPaused {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.Dosage != "200mg" || updated.Frequency != "daily" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateReminderCompletion(t *testing.T) {
	s := New()
	p := addTestPatient(t, s, "John Doe")
	r, err := s.AddReminder(p.ID, &Reminder{Title: "refill", Priority: PriorityHigh})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	done := true
	updated, ok := s.UpdateReminder(p.ID, r.ID, ReminderUpdate{Completed: &done})
	if !ok {
		t.Fatal("update failed")
	}
	if !updated.Completed {
		t.Error("not marked completed")
	}
	if updated.Title != "refill" || updated.Priority != PriorityHigh {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	s := New()
	p := addTestPatient(t, s, "John Doe")
	a, err := s.AddAppointment(p.ID, &Appointment{Title: "Checkup", Date: "2026-04-01"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.Status != AppointmentScheduled {
		t.Fatalf("default status = %q, want scheduled", a.Status)
	}

	cancelled := AppointmentCancelled
	updated, ok := s.UpdateAppointment(p.ID, a.ID, AppointmentUpdate{Status: &cancelled})
	if !ok {
		t.Fatal("update failed")
	}
	if updated.Status != AppointmentCancelled {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.Title != "Checkup" || updated.Date != "2026-04-01" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateDocumentRenameOnly(t *testing.T) {
	s := New()
	p := addTestPatient(t, s, "John Doe")
	r := addTestRecord(t, s, p.ID, &MedicalRecord{Date: "2026-01-01"})
	d, err := s.AddDocument(p.ID, r.ID, &Document{Name: "scan.png", Type: DocumentTypeImage, ContentRef: "blob:x"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, ok := s.UpdateDocument(p.ID, r.ID, d.ID, DocumentUpdate{Name: strPtr("chest-scan.png")})
	if !ok {
		t.Fatal("update failed")
	}
	if updated.Name != "chest-scan.png" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.Type != DocumentTypeImage || updated.ContentRef != "blob:x" {
		t.Errorf("immutable fields changed: %+v", updated)
	}
}
