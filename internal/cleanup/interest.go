package cleanup

import "regexp"

// Interest screen for dump output. Dumps exist so users can report new
// hardware for rule coverage; screening out unrelated devices keeps the
// reports reviewable. The counter list drops entries whose vendor strings
// collide with the tablet patterns.
var interestPatterns = compileInterests([]string{
	"10moon",
	"Acepen",
	"Artisul",
	"Digitizer",
	"EMR",
	"filtr",
	"Gaomon",
	"Genius",
	"Huion",
	"Kenting",
	"libwdi",
	"Lifetec",
	"Monoprice",
	"Parblo",
	"RobotPen",
	"Tablet",
	"UC[-| ]?Logic",
	"UGEE",
	"Veikk",
	"ViewSonic",
	`v\w*hid`,
	"Wacom",
	"WinUSB",
	"XenceLabs",
	"XENX",
	"XP[-| ]?Pen",
})

var counterInterestPatterns = compileInterests([]string{
	"android",
	"logitech",
})

func compileInterests(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		compiled[i] = regexp.MustCompile("(?i)" + pattern)
	}
	return compiled
}

// ofInterest reports whether any candidate string looks tablet-related and
// none trips the counter list.
func ofInterest(candidates ...string) bool {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if !matchesAny(interestPatterns, candidate) {
			continue
		}
		if matchesAny(counterInterestPatterns, candidate) {
			return false
		}
		return true
	}
	return false
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}
