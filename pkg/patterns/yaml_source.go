package patterns

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLSource reads a declarative rule file:
//
//	rules:
//	  - id: urg-deadline-window
//	    category: urgency
//	    subcategory: deadline
//	    weight: 0.25
//	    description: Numeric time window
//	    match:
//	      regex: '\bwithin\s+\d+\s*hours?\b'
//	  - id: auth-confidential
//	    category: authority
//	    subcategory: directive
//	    weight: 0.2
//	    match:
//	      phrases: ["keep this confidential"]
//
// Validation happens in Load, not here: the source only decodes.
type YAMLSource struct {
	Path string
}

type yamlRuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

func (s YAMLSource) Rules() ([]RuleSpec, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening rule file: %w", err)
	}
	defer f.Close()
	return decodeRules(f)
}

// YAMLReaderSource decodes rules from an arbitrary reader. Used by tests and
// by callers that embed their rule file.
type YAMLReaderSource struct {
	Reader io.Reader
}

func (s YAMLReaderSource) Rules() ([]RuleSpec, error) {
	return decodeRules(s.Reader)
}

func decodeRules(r io.Reader) ([]RuleSpec, error) {
	var file yamlRuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding rule file: %w", err)
	}
	return file.Rules, nil
}
