package search

import "sort"

// TermCount pairs a raw fragment string with how often it occurs.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Summary aggregates one patient's fragments for a dashboard view.
type Summary struct {
	PatientID      string         `json:"patientId"`
	TotalFragments int            `json:"totalFragments"`
	ByType         map[string]int `json:"byType"`
	ByUrgency      map[string]int `json:"byUrgency"`
	TopComplaints  []TermCount    `json:"topComplaints"`
	TopDiagnoses   []TermCount    `json:"topDiagnoses"`
	RecordCount    int            `json:"recordCount"`
	DocumentCount  int            `json:"documentCount"`
}

const topTermLimit = 5

// Summarize aggregates counts by type and urgency, the five most frequent
// complaint and diagnosis strings (raw string equality, no clinical
// normalization), and the number of distinct records and documents the
// fragments reference.
func (ix *Index) Summarize(patientID string) Summary {
	fragments := ix.Fragments(patientID)

	s := Summary{
		PatientID: patientID,
		ByType:    make(map[string]int),
		ByUrgency: make(map[string]int),
	}

	complaints := make(map[string]int)
	diagnoses := make(map[string]int)
	records := make(map[string]bool)
	documents := make(map[string]bool)

	for _, f := range fragments {
		s.TotalFragments++
		s.ByType[f.Type]++
		s.ByUrgency[f.Urgency]++
		records[f.RecordID] = true
		if f.DocumentID != "" {
			documents[f.DocumentID] = true
		}
		switch f.Type {
		case TypeComplaint:
			complaints[f.Content]++
		case TypeDiagnosis:
			diagnoses[f.Content]++
		}
	}

	s.TopComplaints = topTerms(complaints, topTermLimit)
	s.TopDiagnoses = topTerms(diagnoses, topTermLimit)
	s.RecordCount = len(records)
	s.DocumentCount = len(documents)
	return s
}

// topTerms returns the n most frequent terms, count descending, term
// ascending on ties so the output is deterministic.
func topTerms(counts map[string]int, n int) []TermCount {
	out := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		out = append(out, TermCount{Term: term, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
