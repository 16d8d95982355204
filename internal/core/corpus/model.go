package corpus

import (
	"github.com/samber/mo"
)

const (
	// UnknownSectionID is assigned when no IPC section number can be extracted.
	UnknownSectionID = "UNKNOWN"

	// LifeYears and DeathYears are the numeric stand-ins used so that life
	// imprisonment and the death penalty sort above any fixed term when a
	// "punishment greater than N years" filter is applied.
	LifeYears  = 999
	DeathYears = 1000
)

// Section is one Indian Penal Code section loaded from the corpus file.
// Sections are immutable after load; changing the corpus requires a rebuild
// of the vector index.
type Section struct {
	ID         string     // normalized form, e.g. "IPC 302", or UnknownSectionID
	Summary    string     // description between the title separator and the punishment clause
	Punishment Punishment // parsed punishment metadata
	Text       string     // original text, used for embedding and prompting
}

// Punishment is the punishment metadata parsed from a section's
// "Punishment:" clause.
type Punishment struct {
	Years       mo.Option[int] // maximum term in years; LifeYears / DeathYears for life / death
	Description string         // raw text of the punishment clause
}

// ExceedsYears reports whether the section carries a punishment strictly
// greater than n years. Sections without a parsed term never match.
func (p Punishment) ExceedsYears(n int) bool {
	years, ok := p.Years.Get()
	return ok && years > n
}

// LoadStats summarizes a corpus load.
type LoadStats struct {
	Loaded  int
	Skipped int
}
