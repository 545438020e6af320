// Package parse implements the firmware-version-aware output parsing
// engine. Rules are grouped by command name into an ordered list; rules
// whose firmware selector matches the session firmware are attempted
// first, each rule tries a primary and then a fallback pattern, and a
// generic whitespace-tabular parser is the last resort. Exhausting every
// strategy yields an empty result, never an error: firmware drift must
// degrade output, not crash callers.
package parse

import (
	"regexp"
	"sort"
	"strings"
)

// Rule is one named parsing strategy for a command's output.
type Rule struct {
	// Name identifies the rule in logs.
	Name string
	// Primary is the preferred pattern; named or positional capture groups
	// map to Fields.
	Primary *regexp.Regexp
	// Fallback is tried when Primary matches nothing. Optional.
	Fallback *regexp.Regexp
	// Versions lists firmware version substrings this rule is specific to.
	// Empty means the rule applies to any firmware.
	Versions []string
	// Fields names the capture groups of Primary/Fallback in order,
	// starting at group 1.
	Fields []string
	// Post optionally rewrites each matched record.
	Post func(map[string]string) map[string]string
}

// MatchesVersion reports whether the rule is version-specific to firmware.
func (r Rule) MatchesVersion(firmware string) bool {
	for _, v := range r.Versions {
		if v != "" && strings.Contains(firmware, v) {
			return true
		}
	}
	return false
}

// versionAgnostic reports whether the rule applies to any firmware.
func (r Rule) versionAgnostic() bool {
	return len(r.Versions) == 0
}

// RuleSet holds parsing rules grouped by command name.
type RuleSet map[string][]Rule

// Order returns the rules for command sorted for the given firmware:
// version-matching rules first (original order preserved within each
// class), then version-agnostic ones. Rules bound to other versions are
// excluded.
func (rs RuleSet) Order(command, firmware string) []Rule {
	rules := rs[command]
	ordered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.MatchesVersion(firmware) || r.versionAgnostic() {
			ordered = append(ordered, r)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MatchesVersion(firmware) && !ordered[j].MatchesVersion(firmware)
	})
	return ordered
}

// Parse runs the fallback chain for one command's output. The boolean
// reports whether any structured strategy (including the generic tabular
// parser) produced records; false means the chain is exhausted and the
// returned slice is empty.
func (rs RuleSet) Parse(command, firmware, output string) ([]map[string]string, bool) {
	for _, rule := range rs.Order(command, firmware) {
		if records := rule.apply(output); len(records) > 0 {
			return records, true
		}
	}

	if records := GenericTable(output); len(records) > 0 {
		return records, true
	}
	return nil, false
}

// apply tries the rule's primary and fallback patterns against output.
func (r Rule) apply(output string) []map[string]string {
	records := r.applyPattern(r.Primary, output)
	if len(records) == 0 && r.Fallback != nil {
		records = r.applyPattern(r.Fallback, output)
	}
	return records
}

func (r Rule) applyPattern(re *regexp.Regexp, output string) []map[string]string {
	if re == nil {
		return nil
	}

	matches := re.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}

	records := make([]map[string]string, 0, len(matches))
	for _, m := range matches {
		record := make(map[string]string, len(r.Fields))
		for i, field := range r.Fields {
			if i+1 < len(m) {
				record[field] = strings.TrimSpace(m[i+1])
			}
		}
		if r.Post != nil {
			record = r.Post(record)
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records
}

var tableSeparatorRE = regexp.MustCompile(`^[-=+\s]+$`)

// GenericTable is the last-resort parser: it treats the first non-empty,
// non-separator line as a whitespace-delimited header and every following
// line as a row. Rows with fewer columns than the header keep the columns
// they have.
func GenericTable(output string) []map[string]string {
	var header []string
	var records []map[string]string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || tableSeparatorRE.MatchString(trimmed) {
			continue
		}

		cols := strings.Fields(trimmed)
		if header == nil {
			if len(cols) < 2 {
				continue
			}
			header = cols
			continue
		}

		record := make(map[string]string, len(header))
		for i, col := range cols {
			if i >= len(header) {
				break
			}
			record[strings.ToLower(header[i])] = col
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records
}

// KeyValues extracts "Key : Value" pairs from colon-formatted display
// output, the dominant format of Huawei "display ... info" commands.
func KeyValues(output string) map[string]string {
	pairs := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" || value == "" {
			continue
		}
		pairs[normalizeKey(key)] = value
	}
	return pairs
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer("(", " ", ")", " ", "-", " ").Replace(key)
	return strings.Join(strings.Fields(key), "_")
}
