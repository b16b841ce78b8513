package dlp

import (
	"fmt"
	"regexp"
	"sort"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Scrubber masks identifiers in free-text fields before they are stored or
// published. A nil Scrubber passes values through.
type Scrubber struct {
	rules []compiledRule
}

// Finding summarises what a scrub masked. Values are never retained.
type Finding struct {
	Types   []string `json:"types"`
	Matches int      `json:"matches"`
}

func NewScrubber(cfg RulesConfig) (*Scrubber, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile DLP rule %s: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Scrubber{rules: compiled}, nil
}

// Scrub returns a masked copy of fields and what was found.
func (s *Scrubber) Scrub(fields map[string]string) (map[string]string, Finding) {
	if fields == nil {
		return nil, Finding{}
	}
	out := make(map[string]string, len(fields))
	if s == nil {
		for k, v := range fields {
			out[k] = v
		}
		return out, Finding{}
	}

	types := make(map[string]struct{})
	var finding Finding
	for key, value := range fields {
		masked := value
		for _, cr := range s.rules {
			n := len(cr.re.FindAllStringIndex(masked, -1))
			if n == 0 {
				continue
			}
			finding.Matches += n
			types[cr.rule.Type] = struct{}{}
			masked = cr.re.ReplaceAllLiteralString(masked, cr.rule.Mask)
		}
		out[key] = masked
	}

	for t := range types {
		finding.Types = append(finding.Types, t)
	}
	sort.Strings(finding.Types)
	return out, finding
}
