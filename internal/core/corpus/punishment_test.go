package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePunishment(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantYears   int
		wantParsed  bool
		wantClause  string
	}{
		{
			name:       "single term",
			text:       "IPC 379: Theft. Punishment: Imprisonment up to 3 years, or fine, or both.",
			wantYears:  3,
			wantParsed: true,
			wantClause: "Imprisonment up to 3 years, or fine, or both.",
		},
		{
			name:       "range resolves to upper bound",
			text:       "IPC 304B: Dowry death. Punishment: Imprisonment of 7 to 10 years.",
			wantYears:  10,
			wantParsed: true,
			wantClause: "Imprisonment of 7 to 10 years.",
		},
		{
			name:       "hyphenated range",
			text:       "IPC 392: Robbery. Punishment: Rigorous imprisonment 3-14 years.",
			wantYears:  14,
			wantParsed: true,
			wantClause: "Rigorous imprisonment 3-14 years.",
		},
		{
			name:       "life imprisonment",
			text:       "IPC 121: Waging war. Punishment: Imprisonment for life and fine.",
			wantYears:  LifeYears,
			wantParsed: true,
			wantClause: "Imprisonment for life and fine.",
		},
		{
			name:       "death penalty",
			text:       "IPC 302: Murder. Punishment: Death, and fine.",
			wantYears:  DeathYears,
			wantParsed: true,
			wantClause: "Death, and fine.",
		},
		{
			name:       "no punishment clause",
			text:       "IPC 52: Definition of good faith. Nothing is said to be done in good faith.",
			wantParsed: false,
			wantClause: "",
		},
		{
			name:       "clause without a term",
			text:       "IPC 510: Misconduct. Punishment: Fine only.",
			wantParsed: false,
			wantClause: "Fine only.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePunishment(tt.text)

			assert.Equal(t, tt.wantClause, p.Description)

			years, ok := p.Years.Get()
			require.Equal(t, tt.wantParsed, ok)
			if tt.wantParsed {
				assert.Equal(t, tt.wantYears, years)
			}
		})
	}
}

func TestPunishmentExceedsYears(t *testing.T) {
	murder := ParsePunishment("IPC 302: Murder. Punishment: Death, or imprisonment for life.")
	theft := ParsePunishment("IPC 379: Theft. Punishment: Imprisonment up to 3 years.")
	definition := ParsePunishment("IPC 52: Definition of good faith.")

	assert.True(t, murder.ExceedsYears(10))
	assert.True(t, theft.ExceedsYears(2))
	assert.False(t, theft.ExceedsYears(3), "threshold comparison is strict")
	assert.False(t, definition.ExceedsYears(0), "unparsed punishments never match")
}
