package record

import "testing"

func restoreSnapshot(existingID string) Snapshot {
	return Snapshot{
		Patients: []*Patient{
			{ID: existingID, Name: "Incoming Name", MedicalHistory: "from backup"},
			{ID: "p-new", Name: "New Patient"},
		},
		Doctors: []*Doctor{
			{ID: "d-new", Name: "Dr. New"},
		},
	}
}

func TestParseMergeStrategy(t *testing.T) {
	for _, valid := range []string{"replace", "merge", "merge-preserve"} {
		if _, err := ParseMergeStrategy(valid); err != nil {
			t.Errorf("ParseMergeStrategy(%q) = %v", valid, err)
		}
	}
	if _, err := ParseMergeStrategy("append"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestApplySnapshotReplace(t *testing.T) {
	s := New()
	old := addTestPatient(t, s, "Old Resident")
	s.SelectPatient(old.ID)

	res, err := s.ApplySnapshot(restoreSnapshot("p-existing"), MergeReplace)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if res.Patients.Added != 2 || res.Patients.Updated != 0 {
		t.Errorf("patient counts = %+v, want {2 0}", res.Patients)
	}
	if res.Doctors.Added != 1 {
		t.Errorf("doctor counts = %+v, want {1 0}", res.Doctors)
	}
	if _, ok := s.Patient(old.ID); ok {
		t.Error("pre-restore patient survived a replace")
	}
	if cur := s.Cursor(); cur.PatientID != "" || cur.RecordID != "" {
		t.Errorf("cursor not cleared: %+v", cur)
	}
}

func TestApplySnapshotMerge(t *testing.T) {
	s := New()
	existing, err := s.AddPatient(&Patient{Name: "Existing Name"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := s.ApplySnapshot(restoreSnapshot(existing.ID), Merge)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if res.Patients.Added != 1 || res.Patients.Updated != 1 {
		t.Errorf("patient counts = %+v, want {1 1}", res.Patients)
	}
	got, _ := s.Patient(existing.ID)
	if got.Name != "Incoming Name" {
		t.Errorf("name = %q, want the incoming entity to win", got.Name)
	}
	if _, ok := s.Patient("p-new"); !ok {
		t.Error("new entity was not added")
	}
}

func TestApplySnapshotMergePreserve(t *testing.T) {
	s := New()
	existing, err := s.AddPatient(&Patient{Name: "Existing Name"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := s.ApplySnapshot(restoreSnapshot(existing.ID), MergePreserve)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if res.Patients.Added != 1 || res.Patients.Updated != 0 {
		t.Errorf("patient counts = %+v, want {1 0}", res.Patients)
	}
	got, _ := s.Patient(existing.ID)
	if got.Name != "Existing Name" {
		t.Errorf("name = %q, want the existing entity kept", got.Name)
	}
	if _, ok := s.Patient("p-new"); !ok {
		t.Error("new entity was not added")
	}
}

func TestApplySnapshotRevalidatesCursor(t *testing.T) {
	s := New()
	p := addTestPatient(t, s, "John Doe")
	r := addTestRecord(t, s, p.ID, &MedicalRecord{Date: "2026-01-01"})
	s.SelectPatient(p.ID)
	s.SelectRecord(r.ID)

	// The incoming copy of the patient has no records; the record cursor
	// must not keep pointing at one that no longer exists.
	snap := Snapshot{Patients: []*Patient{{ID: p.ID, Name: "John Doe"}}}
	if _, err := s.ApplySnapshot(snap, Merge); err != nil {
		t.Fatalf("apply: %v", err)
	}

	cur := s.Cursor()
	if cur.PatientID != p.ID {
		t.Errorf("patient cursor = %q, want %q", cur.PatientID, p.ID)
	}
	if cur.RecordID != "" {
		t.Errorf("record cursor = %q, want cleared", cur.RecordID)
	}
}

func TestApplySnapshotRejectsUnknownStrategy(t *testing.T) {
	s := New()
	if _, err := s.ApplySnapshot(Snapshot{}, MergeStrategy("union")); err == nil {
		t.Fatal("expected error")
	}
}
