package corpus

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

var (
	punishmentClausePattern = regexp.MustCompile(`(?i)Punishment:\s*(.*)`)
	yearRangePattern        = regexp.MustCompile(`(?i)(\d+)\s*(?:to|-)\s*(\d+)\s*(?:years|year)`)
	singleYearPattern       = regexp.MustCompile(`(?i)(\d+)\s*(?:years|year)`)
)

// ParsePunishment extracts the punishment clause from a section's text and
// derives the maximum term in years. Ranges like "3 to 7 years" resolve to
// the upper bound; "life" and "death" map to LifeYears and DeathYears.
func ParsePunishment(text string) Punishment {
	clause := ""
	if m := punishmentClausePattern.FindStringSubmatch(text); m != nil {
		clause = strings.TrimSpace(m[1])
	}

	return Punishment{
		Years:       parseYears(clause),
		Description: clause,
	}
}

func parseYears(clause string) mo.Option[int] {
	if ranges := yearRangePattern.FindAllStringSubmatch(clause, -1); ranges != nil {
		max := 0
		for _, r := range ranges {
			for _, raw := range r[1:] {
				if y, err := strconv.Atoi(raw); err == nil && y > max {
					max = y
				}
			}
		}
		return mo.Some(max)
	}

	if m := singleYearPattern.FindStringSubmatch(clause); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return mo.Some(y)
		}
	}

	lower := strings.ToLower(clause)
	switch {
	case strings.Contains(lower, "life"):
		return mo.Some(LifeYears)
	case strings.Contains(lower, "death"):
		return mo.Some(DeathYears)
	}

	return mo.None[int]()
}
