package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

// minTextLength is the minimum number of runes an entry must have to be
// considered a usable section.
const minTextLength = 20

// maxLineBytes bounds a single corpus line; statutory text is short, but a
// concatenated export can produce long lines.
const maxLineBytes = 1 << 20

var sectionIDPattern = regexp.MustCompile(`(?i)IPC\s*(\d+[A-Z]*)`)

type corpusEntry struct {
	Text string `json:"text"`
}

// Loader reads the line-delimited JSON corpus of IPC sections.
type Loader struct {
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger used for skip warnings.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a new corpus Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load reads and structures the corpus file. A missing file is an error;
// malformed or unusable lines are logged, counted, and skipped.
func (l *Loader) Load(path string) ([]Section, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open corpus file %s: %w", path, err)
	}
	defer f.Close()

	var (
		sections []Section
		stats    LoadStats
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry corpusEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			l.logger.Warn("skipping invalid JSON line", "line", lineNo, "error", err)
			stats.Skipped++
			continue
		}

		if !usableText(entry.Text) {
			stats.Skipped++
			continue
		}

		sections = append(sections, Section{
			ID:         extractSectionID(entry.Text),
			Summary:    extractSummary(entry.Text),
			Punishment: ParsePunishment(entry.Text),
			Text:       entry.Text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to read corpus file: %w", err)
	}

	stats.Loaded = len(sections)
	l.logger.Info("corpus loaded", "path", path, "sections", stats.Loaded, "skipped", stats.Skipped)

	return sections, stats, nil
}

// usableText filters out placeholder rows from the source export: entries
// carrying a literal "nan" or too little text to embed.
func usableText(text string) bool {
	if strings.Contains(strings.ToLower(text), "nan") {
		return false
	}
	return utf8.RuneCountInString(text) >= minTextLength
}

func extractSectionID(text string) string {
	m := sectionIDPattern.FindStringSubmatch(text)
	if m == nil {
		return UnknownSectionID
	}
	return "IPC " + strings.ToUpper(m[1])
}

// extractSummary returns the description between the first ":" and the
// "Punishment:" clause. Entries without a punishment clause keep the full text.
func extractSummary(text string) string {
	if !strings.Contains(text, "Punishment:") {
		return text
	}
	s := text
	if _, rest, found := strings.Cut(s, ":"); found {
		s = rest
	}
	if desc, _, found := strings.Cut(s, "Punishment:"); found {
		s = desc
	}
	return strings.TrimSpace(s)
}
