package record

import (
	"context"
	"testing"

	"github.com/fhk/fhk/internal/platform/storage"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dev := storage.NewMemory()

	s := New()
	p := addTestPatient(t, s, "John Doe")
	addTestRecord(t, s, p.ID, &MedicalRecord{Date: "2026-01-01", Complaint: "cough"})
	s.AddDoctor(&Doctor{Name: "Dr. Gregory"})

	if err := s.Save(ctx, dev); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := New()
	if err := loaded.Load(ctx, dev); err != nil {
		t.Fatalf("load: %v", err)
	}

	got, ok := loaded.Patient(p.ID)
	if !ok {
		t.Fatal("patient missing after reload")
	}
	if got.Name != "John Doe" || len(got.Records) != 1 {
		t.Errorf("reloaded patient = %+v", got)
	}
	if _, doctors := loaded.Counts(); doctors != 1 {
		t.Errorf("doctor count = %d, want 1", doctors)
	}
}

func TestLoadFromEmptyDevice(t *testing.T) {
	s := New()
	if err := s.Load(context.Background(), storage.NewMemory()); err != nil {
		t.Fatalf("load from fresh device: %v", err)
	}
	patients, doctors := s.Counts()
	if patients != 0 || doctors != 0 {
		t.Errorf("counts = (%d, %d), want empty", patients, doctors)
	}
}
