package review

import "fmt"

// Closure note templates keyed by report language. English is the fallback.
const (
	noteEN = "Closed as duplicate of report #%s."
	noteDE = "Als Duplikat von Meldung #%s geschlossen."
)

// closureNote renders the audit note for a closed duplicate, referencing the
// canonical source report.
func closureNote(language, sourceID string) string {
	switch language {
	case "de":
		return fmt.Sprintf(noteDE, sourceID)
	default:
		return fmt.Sprintf(noteEN, sourceID)
	}
}
