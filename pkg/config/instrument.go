package config

import (
	"fmt"
	"sort"

	"github.com/gobwas/glob"
)

// JSInstrumentRule selects the properties of a JavaScript global to
// instrument. Property selectors are glob patterns matched against the
// object's property names at injection time.
type JSInstrumentRule struct {
	// Object is the global object to hook, e.g. "window.navigator"
	Object string `yaml:"object" json:"object"`

	// Properties are glob patterns for property names to instrument;
	// empty means all properties
	Properties []string `yaml:"properties" json:"properties"`

	// ExcludedProperties are glob patterns removed from the selection
	ExcludedProperties []string `yaml:"excluded_properties" json:"excluded_properties"`

	// LogCallStack records a stack trace with each property access
	LogCallStack bool `yaml:"log_call_stack" json:"log_call_stack"`

	// LogFunctionsAsStrings serializes hooked function values
	LogFunctionsAsStrings bool `yaml:"log_functions_as_strings" json:"log_functions_as_strings"`
}

// CleanJSInstrumentSettings normalizes raw instrument rules into the
// nested settings mapping carried on BrowserConfig and rendered in the
// configuration report. Every property pattern is compiled up front so
// a typo fails the run at config load rather than at injection time.
// Rules for the same object are merged; pattern lists are deduplicated
// and sorted.
func CleanJSInstrumentSettings(rules []JSInstrumentRule) (map[string]any, error) {
	type merged struct {
		properties   map[string]bool
		excluded     map[string]bool
		logCallStack bool
		logFuncs     bool
	}

	byObject := make(map[string]*merged)
	var order []string

	for i, rule := range rules {
		if rule.Object == "" {
			return nil, fmt.Errorf("js instrument rule %d: object is required", i)
		}

		for _, pattern := range rule.Properties {
			if _, err := glob.Compile(pattern); err != nil {
				return nil, fmt.Errorf("js instrument rule %d: invalid property pattern '%s': %w", i, pattern, err)
			}
		}
		for _, pattern := range rule.ExcludedProperties {
			if _, err := glob.Compile(pattern); err != nil {
				return nil, fmt.Errorf("js instrument rule %d: invalid excluded pattern '%s': %w", i, pattern, err)
			}
		}

		m, ok := byObject[rule.Object]
		if !ok {
			m = &merged{properties: make(map[string]bool), excluded: make(map[string]bool)}
			byObject[rule.Object] = m
			order = append(order, rule.Object)
		}
		for _, p := range rule.Properties {
			m.properties[p] = true
		}
		for _, p := range rule.ExcludedProperties {
			m.excluded[p] = true
		}
		m.logCallStack = m.logCallStack || rule.LogCallStack
		m.logFuncs = m.logFuncs || rule.LogFunctionsAsStrings
	}

	cleaned := make(map[string]any, len(byObject))
	for _, object := range order {
		m := byObject[object]
		cleaned[object] = map[string]any{
			"properties":               sortedKeys(m.properties),
			"excluded_properties":      sortedKeys(m.excluded),
			"log_call_stack":           m.logCallStack,
			"log_functions_as_strings": m.logFuncs,
		}
	}
	return cleaned, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
