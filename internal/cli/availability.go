package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/at-ishikawa/conceptdeck/internal/limits"
	"github.com/at-ishikawa/conceptdeck/internal/study"
)

// PrintAvailability writes one line per gate of a notebook.
func PrintAvailability(w io.Writer, notebookID string, a *study.Availability, loc *time.Location) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "%s: %d of %d concept(s) to review\n", notebookID, a.ReviewableCount, a.TotalConcepts)

	gates := []struct {
		name string
		gate limits.Availability
	}{
		{"smart study", a.SmartStudy},
		{"free study", a.FreeStudy},
		{"quiz", a.Quiz},
	}
	for _, g := range gates {
		fmt.Fprintf(w, "  %-12s ", g.name)
		if g.gate.Allowed {
			_, _ = color.New(color.FgGreen).Fprintln(w, "available")
			continue
		}
		line := fmt.Sprintf("blocked (%s)", g.gate.Reason)
		if g.gate.NextEligible != nil {
			line += " until " + g.gate.NextEligible.In(loc).Format("2006-01-02 15:04")
		}
		_, _ = color.New(color.FgRed).Fprintln(w, line)
	}
}
