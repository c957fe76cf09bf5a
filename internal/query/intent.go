// Package query answers free-text questions about stored float records
// using keyword and pattern rules.
package query

import (
	"regexp"
	"strings"
)

// Intent is the class of a question.
type Intent int

// Intents in classification priority order.
const (
	IntentUnknown Intent = iota
	IntentGreeting
	IntentHelp
	IntentData
	IntentComparison
	IntentListing
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentHelp:
		return "help"
	case IntentData:
		return "data"
	case IntentComparison:
		return "comparison"
	case IntentListing:
		return "listing"
	default:
		return "unknown"
	}
}

type intentRule struct {
	match  func(question string) bool
	intent Intent
}

// intentRules are evaluated in order; the first match wins.
var intentRules = []intentRule{
	{keywords(`hello`, `hi`, `hey`, `greetings`), IntentGreeting},
	{keywords(`help`, `what can you do`, `capabilities`), IntentHelp},
	{keywords(`show(?:s|n|ed|ing)?`, `display(?:s|ed|ing)?`, `find(?:s|ing)?`, `get(?:s|ting)?`, `what is`), IntentData},
	{keywords(`compar(?:e|es|ed|ing)`, `difference`, `versus`, `vs`), IntentComparison},
	{keywords(`list(?:s|ed|ing)?`, `all floats`, `available`), IntentListing},
}

// Classify returns the intent of question.
func Classify(question string) Intent {
	q := strings.ToLower(question)
	for _, rule := range intentRules {
		if rule.match(q) {
			return rule.intent
		}
	}
	return IntentUnknown
}

// keywords matches any of the patterns as whole words, so "hi" does not
// fire inside "this". Spaces in a pattern match any run of whitespace.
func keywords(patterns ...string) func(string) bool {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = strings.ReplaceAll(p, " ", `\s+`)
	}
	re := regexp.MustCompile(`\b(?:` + strings.Join(parts, "|") + `)\b`)
	return re.MatchString
}
