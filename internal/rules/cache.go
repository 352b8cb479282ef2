package rules

import (
	"fmt"
	"regexp"
	"sync"
)

// PatternError reports malformed pattern text in a rule file. It is a fatal
// configuration error, surfaced at first use of the pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("malformed rule pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// patternCache memoizes compiled patterns by source text so matching many
// objects against the same rule set compiles each pattern once.
type patternCache struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

var cache = &patternCache{compiled: make(map[string]*regexp.Regexp)}

func (c *patternCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if re, ok := c.compiled[pattern]; ok {
		return re, nil
	}

	// Rule patterns are case-insensitive, unanchored searches.
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	c.compiled[pattern] = re
	return re, nil
}

// matchPattern evaluates one optional pattern field against one attribute.
// A nil pattern is a wildcard. An absent attribute is matched as "".
func matchPattern(pattern *string, value string) (bool, error) {
	if pattern == nil {
		return true, nil
	}
	re, err := cache.get(*pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}

// matchAny evaluates a pattern against a multi-valued attribute: the pattern
// is satisfied when at least one candidate matches. An empty candidate list
// behaves like a single empty string.
func matchAny(pattern *string, values []string) (bool, error) {
	if pattern == nil {
		return true, nil
	}
	if len(values) == 0 {
		return matchPattern(pattern, "")
	}
	for _, v := range values {
		ok, err := matchPattern(pattern, v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
