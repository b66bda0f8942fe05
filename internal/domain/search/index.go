// Package search maintains the in-memory index of clinical text fragments:
// each patient's records and documents flattened into independently
// filterable units. The index lives only for the session and is rebuilt
// from the entity store after any restore or bulk load.
package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fhk/fhk/internal/domain/record"
)

// Fragment types.
const (
	TypeComplaint     = "complaint"
	TypeInvestigation = "investigation"
	TypeDiagnosis     = "diagnosis"
	TypePrescription  = "prescription"
	TypeNote          = "note"
)

// Urgency levels.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Fragment sources.
const (
	SourceManual = "manual"
	SourceParsed = "parsed"
)

// Fragment is one indexed unit of clinical text. IDs are deterministic over
// the record contents, so re-indexing an unchanged patient reproduces the
// identical fragment set.
type Fragment struct {
	ID         string `json:"id"`
	PatientID  string `json:"patientId"`
	RecordID   string `json:"recordId"`
	DocumentID string `json:"documentId,omitempty"`
	Type       string `json:"type"`
	Urgency    string `json:"urgency"`
	Source     string `json:"source"`
	Content    string `json:"content"`
	Date       string `json:"date"`
}

// Index holds fragments per patient. Safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	byPatient map[string][]Fragment
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byPatient: make(map[string][]Fragment)}
}

// IndexPatient replaces the patient's fragments with a fresh extraction
// from their current records and documents. Prior entries are discarded
// first, so calling it twice with unchanged input is idempotent.
func (ix *Index) IndexPatient(p *record.Patient) {
	fragments := extract(p)
	ix.mu.Lock()
	ix.byPatient[p.ID] = fragments
	ix.mu.Unlock()
}

// RemovePatient drops all of a patient's fragments.
func (ix *Index) RemovePatient(patientID string) {
	ix.mu.Lock()
	delete(ix.byPatient, patientID)
	ix.mu.Unlock()
}

// Reset drops the whole index.
func (ix *Index) Reset() {
	ix.mu.Lock()
	ix.byPatient = make(map[string][]Fragment)
	ix.mu.Unlock()
}

// Fragments returns a copy of one patient's fragments.
func (ix *Index) Fragments(patientID string) []Fragment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	src := ix.byPatient[patientID]
	out := make([]Fragment, len(src))
	copy(out, src)
	return out
}

// extract flattens one patient into fragments: one per non-empty line item
// of each clinical free-text field, one per attached document.
func extract(p *record.Patient) []Fragment {
	var out []Fragment
	for _, r := range p.Records {
		fields := []struct {
			typ  string
			text string
		}{
			{TypeComplaint, r.Complaint},
			{TypeInvestigation, r.Investigations},
			{TypeDiagnosis, r.Diagnosis},
			{TypePrescription, r.Prescription},
			{TypeNote, r.Notes},
		}
		for _, f := range fields {
			for i, item := range splitItems(f.text) {
				out = append(out, Fragment{
					ID:        fmt.Sprintf("%s:%s:%d", r.ID, f.typ, i),
					PatientID: p.ID,
					RecordID:  r.ID,
					Type:      f.typ,
					Urgency:   classifyUrgency(item),
					Source:    SourceManual,
					Content:   item,
					Date:      r.Date,
				})
			}
		}
		for _, d := range r.Documents {
			out = append(out, Fragment{
				ID:         fmt.Sprintf("%s:doc:%s", r.ID, d.ID),
				PatientID:  p.ID,
				RecordID:   r.ID,
				DocumentID: d.ID,
				Type:       TypeNote,
				Urgency:    UrgencyLow,
				Source:     SourceParsed,
				Content:    d.Name,
				Date:       r.Date,
			})
		}
	}
	return out
}

// splitItems breaks a free-text field into line items: one entry per
// newline- or semicolon-separated piece, blanks dropped.
func splitItems(text string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ';'
	}) {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var highUrgencyTerms = []string{
	"severe", "acute", "urgent", "emergency", "critical", "chest pain",
	"unbearable", "worst",
}

var mediumUrgencyTerms = []string{
	"moderate", "persistent", "recurring", "chronic", "worsening",
}

// classifyUrgency is a keyword heuristic over the fragment text.
func classifyUrgency(text string) string {
	lower := strings.ToLower(text)
	for _, term := range highUrgencyTerms {
		if strings.Contains(lower, term) {
			return UrgencyHigh
		}
	}
	for _, term := range mediumUrgencyTerms {
		if strings.Contains(lower, term) {
			return UrgencyMedium
		}
	}
	return UrgencyLow
}
