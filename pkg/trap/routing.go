package trap

import (
	"regexp"
	"strings"
)

var keyUnsafeRE = regexp.MustCompile(`[^a-z0-9_-]+`)

// normalizeIdentifier lowercases and hyphenates a device name for use as
// a routing key segment.
func normalizeIdentifier(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = keyUnsafeRE.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}

// RoutingKeys computes the full fan-out set for one event: the
// current-name key, the IP fallback key, the previous-name key when the
// OLT was renamed inside the dual-routing window, and the priority key
// for critical events. The identical body goes to every key so consumers
// bound to either side of a rename transition see the event at least
// once.
func RoutingKeys(ev Event, previousName string) []string {
	keys := make([]string, 0, 4)
	seen := make(map[string]bool, 4)

	add := func(key string) {
		if key != "" && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	if name := normalizeIdentifier(ev.OltName); name != "" {
		add("olt." + name + "." + ev.EventType)
	}
	add("olt." + ev.OltIP + "." + ev.EventType)
	if prev := normalizeIdentifier(previousName); prev != "" {
		add("olt." + prev + "." + ev.EventType)
	}
	if ev.Severity == SeverityCritical {
		add("critical." + ev.OltIP + "." + ev.EventType)
	}
	return keys
}
