package search

import (
	"sort"
	"strings"
)

// Query filters fragments. Zero values mean "no constraint". Dates are
// "YYYY-MM-DD" strings and compare lexically; From and To are inclusive.
type Query struct {
	PatientID string
	Types     []string
	Urgency   string
	Source    string
	From      string
	To        string
	Text      string // case-insensitive substring over content
}

// Search returns the matching fragments sorted by date descending. Ties
// keep their index order (stable sort).
func (ix *Index) Search(q Query) []Fragment {
	ix.mu.RLock()
	var out []Fragment
	if q.PatientID != "" {
		out = filter(ix.byPatient[q.PatientID], q)
	} else {
		for _, fragments := range ix.byPatient {
			out = append(out, filter(fragments, q)...)
		}
	}
	ix.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

func filter(fragments []Fragment, q Query) []Fragment {
	text := strings.ToLower(q.Text)
	var out []Fragment
	for _, f := range fragments {
		if len(q.Types) > 0 && !containsString(q.Types, f.Type) {
			continue
		}
		if q.Urgency != "" && f.Urgency != q.Urgency {
			continue
		}
		if q.Source != "" && f.Source != q.Source {
			continue
		}
		if q.From != "" && f.Date < q.From {
			continue
		}
		if q.To != "" && f.Date > q.To {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(f.Content), text) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
