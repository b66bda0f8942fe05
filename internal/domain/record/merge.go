package record

import "fmt"

// MergeStrategy governs how a restored snapshot combines with the entities
// already in the store when ids collide.
type MergeStrategy string

const (
	// MergeReplace throws away the current contents and installs the
	// snapshot wholesale. The selection is cleared.
	MergeReplace MergeStrategy = "replace"

	// Merge lets incoming entities overwrite existing ones that
	// share an id; ids only present in the snapshot are added.
	Merge MergeStrategy = "merge"

	// MergePreserve keeps existing entities on id collision; only
	// genuinely new ids are added.
	MergePreserve MergeStrategy = "merge-preserve"
)

// ParseMergeStrategy validates a strategy name.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(s) {
	case MergeReplace, Merge, MergePreserve:
		return MergeStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}

// KindCounts reports how many entities of one kind a restore added and how
// many it overwrote.
type KindCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// RestoreResult is the per-kind outcome of ApplySnapshot.
type RestoreResult struct {
	Patients KindCounts `json:"patients"`
	Doctors  KindCounts `json:"doctors"`
}

// ApplySnapshot merges a decrypted backup snapshot into the store under the
// given strategy. The snapshot is deep-copied on the way in, so the caller
// may keep mutating its copy. The cursor is cleared on replace and
// revalidated otherwise, so it never dangles.
func (s *Store) ApplySnapshot(snap Snapshot, strategy MergeStrategy) (RestoreResult, error) {
	if _, err := ParseMergeStrategy(string(strategy)); err != nil {
		return RestoreResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res RestoreResult
	if strategy == MergeReplace {
		clean := snap.Clone()
		s.patients = clean.Patients
		s.doctors = clean.Doctors
		s.cursor = Cursor{}
		res.Patients.Added = len(clean.Patients)
		res.Doctors.Added = len(clean.Doctors)
		return res, nil
	}

	overwrite := strategy == Merge

	for _, in := range snap.Patients {
		if i := indexOfPatient(s.patients, in.ID); i >= 0 {
			if overwrite {
				s.patients[i] = in.Clone()
				res.Patients.Updated++
			}
			continue
		}
		s.patients = append(s.patients, in.Clone())
		res.Patients.Added++
	}

	for _, in := range snap.Doctors {
		if i := indexOfDoctor(s.doctors, in.ID); i >= 0 {
			if overwrite {
				s.doctors[i] = in.Clone()
				res.Doctors.Updated++
			}
			continue
		}
		s.doctors = append(s.doctors, in.Clone())
		res.Doctors.Added++
	}

	s.revalidateCursorLocked()
	return res, nil
}

// revalidateCursorLocked repairs the cursor after a bulk mutation: a missing
// patient clears it, a missing record falls back to the patient's first.
func (s *Store) revalidateCursorLocked() {
	if s.cursor.PatientID == "" {
		return
	}
	p := s.findPatient(s.cursor.PatientID)
	if p == nil {
		s.cursor = Cursor{}
		return
	}
	if s.cursor.RecordID == "" {
		return
	}
	for _, r := range p.Records {
		if r.ID == s.cursor.RecordID {
			return
		}
	}
	s.cursor.RecordID = firstRecordID(p)
}

func indexOfPatient(list []*Patient, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func indexOfDoctor(list []*Doctor, id string) int {
	for i, d := range list {
		if d.ID == id {
			return i
		}
	}
	return -1
}
