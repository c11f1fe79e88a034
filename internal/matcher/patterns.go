package matcher

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PatternEntry is one row of the data-driven matching table: a regular
// expression evaluated against the lowercased title/description and the
// canonical band name it resolves to. Earlier entries are assumed more
// specific and are checked first.
type PatternEntry struct {
	Pattern string `yaml:"pattern"`
	Band    string `yaml:"band"`
}

type compiledEntry struct {
	re   *regexp.Regexp
	band string
}

// DefaultPatterns is the built-in matching table, used when no patterns file
// is configured. Order matters: first match wins.
var DefaultPatterns = []PatternEntry{
	{Pattern: `southern\s+university|human\s+jukebox`, Band: "Southern University Human Jukebox"},
	{Pattern: `jackson\s+state|sonic\s+boom`, Band: "Jackson State Sonic Boom of the South"},
	{Pattern: `grambling|world\s+famed`, Band: "Grambling State World Famed Tiger Marching Band"},
	{Pattern: `florida\s+a\s*&?\s*m|famu|marching\s+100`, Band: "FAMU Marching 100"},
	{Pattern: `alabama\s+state|mighty\s+marching\s+hornets`, Band: "Alabama State Mighty Marching Hornets"},
	{Pattern: `alabama\s+a\s*&?\s*m|maroon\s+(and|&)\s+white`, Band: "Alabama A&M Marching Maroon and White"},
	{Pattern: `alcorn|sounds\s+of\s+dyn-?o-?mite`, Band: "Alcorn State Sounds of Dyn-O-Mite"},
	{Pattern: `prairie\s+view|marching\s+storm`, Band: "Prairie View A&M Marching Storm"},
	{Pattern: `texas\s+southern|ocean\s+of\s+soul`, Band: "Texas Southern Ocean of Soul"},
	{Pattern: `north\s+carolina\s+a\s*&?\s*t|blue\s+(and|&)\s+gold\s+marching\s+machine`, Band: "NC A&T Blue and Gold Marching Machine"},
	{Pattern: `tennessee\s+state|aristocrat\s+of\s+bands`, Band: "Tennessee State Aristocrat of Bands"},
	{Pattern: `bethune-?cookman|marching\s+wildcats`, Band: "Bethune-Cookman Marching Wildcats"},
	{Pattern: `norfolk\s+state|spartan\s+legion`, Band: "Norfolk State Spartan Legion"},
	{Pattern: `miles\s+college|purple\s+marching\s+machine`, Band: "Miles College Purple Marching Machine"},
	{Pattern: `talladega|great\s+tornado`, Band: "Talladega College Marching Tornado"},
}

// LoadPatterns reads a YAML pattern table from disk. The file holds a list
// of {pattern, band} entries evaluated in file order.
func LoadPatterns(path string) ([]PatternEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}

	var entries []PatternEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse patterns file: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("patterns file %s contains no entries", path)
	}

	return entries, nil
}

func compilePatterns(entries []PatternEntry) ([]compiledEntry, error) {
	compiled := make([]compiledEntry, 0, len(entries))
	for i, entry := range entries {
		if entry.Band == "" {
			return nil, fmt.Errorf("pattern entry %d has no band name", i)
		}
		re, err := regexp.Compile(entry.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern entry %d (%s): %w", i, entry.Band, err)
		}
		compiled = append(compiled, compiledEntry{re: re, band: entry.Band})
	}
	return compiled, nil
}
