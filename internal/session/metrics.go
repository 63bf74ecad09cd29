package session

import "time"

// Metrics aggregates what happened in a session.
// The running counters count every response, including repeats in later passes.
// MasteredFinal and NotMasteredFinal are reconciled from the final verdicts at completion.
type Metrics struct {
	TotalConcepts    int `json:"totalConcepts"`
	ConceptsReviewed int `json:"conceptsReviewed"`
	Mastered         int `json:"mastered"`
	Reviewing        int `json:"reviewing"`
	// TimeSpent is in seconds, sampled as now minus start time.
	TimeSpent int `json:"timeSpent"`

	MasteredFinal       *int                `json:"conceptsDominados,omitempty"`
	NotMasteredFinal    *int                `json:"conceptosNoDominados,omitempty"`
	ConceptFinalResults map[string]Response `json:"conceptFinalResults,omitempty"`
	FirstPassResults    map[string]Response `json:"firstPassResults,omitempty"`
	Passes              int                 `json:"passes,omitempty"`
}

func elapsedSeconds(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / time.Second)
}

// Payload renders the metrics for persistence. Unset fields are left out instead of written as null.
func (m Metrics) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"totalConcepts":    m.TotalConcepts,
		"conceptsReviewed": m.ConceptsReviewed,
		"mastered":         m.Mastered,
		"reviewing":        m.Reviewing,
		"timeSpent":        m.TimeSpent,
	}
	if m.MasteredFinal != nil {
		payload["conceptsDominados"] = *m.MasteredFinal
	}
	if m.NotMasteredFinal != nil {
		payload["conceptosNoDominados"] = *m.NotMasteredFinal
	}
	if len(m.ConceptFinalResults) > 0 {
		payload["conceptFinalResults"] = stringify(m.ConceptFinalResults)
	}
	if len(m.FirstPassResults) > 0 {
		payload["firstPassResults"] = stringify(m.FirstPassResults)
	}
	if m.Passes > 0 {
		payload["passes"] = m.Passes
	}
	return payload
}

func stringify(results map[string]Response) map[string]string {
	out := make(map[string]string, len(results))
	for id, r := range results {
		if id == "" || r == "" {
			continue
		}
		out[id] = string(r)
	}
	return out
}
