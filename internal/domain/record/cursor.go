package record

// Cursor is the session selection: which patient and which of their records
// the UI is focused on. Either id may be empty; a non-empty id always
// references an entity that exists in the store.
type Cursor struct {
	PatientID string `json:"selectedPatientId,omitempty"`
	RecordID  string `json:"selectedRecordId,omitempty"`
}

// Cursor returns the current selection.
func (s *Store) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// SelectPatient moves the patient cursor and resets the record cursor to
// that patient's first record, or to none. An empty id clears the whole
// selection. Selecting an unknown patient is refused so the cursor can
// never dangle.
func (s *Store) SelectPatient(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.cursor = Cursor{}
		return true
	}
	p := s.findPatient(id)
	if p == nil {
		return false
	}
	s.cursor = Cursor{PatientID: id, RecordID: firstRecordID(p)}
	return true
}

// SelectRecord moves the record cursor within the currently selected
// patient. An empty id clears only the record cursor.
func (s *Store) SelectRecord(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.PatientID == "" {
		return false
	}
	if id == "" {
		s.cursor.RecordID = ""
		return true
	}
	if s.findRecord(s.cursor.PatientID, id) == nil {
		return false
	}
	s.cursor.RecordID = id
	return true
}

func firstRecordID(p *Patient) string {
	if len(p.Records) == 0 {
		return ""
	}
	return p.Records[0].ID
}
