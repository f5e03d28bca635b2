package node

import (
	"regexp"
	"strings"
)

// Impl is the software a peer advertises in its user agent.
type Impl int

const (
	ImplUnknown Impl = iota
	ImplCore
	ImplKnots
	ImplBtcd
	ImplUtreexod
	ImplFloresta
)

func (i Impl) String() string {
	switch i {
	case ImplCore:
		return "Bitcoin Core"
	case ImplKnots:
		return "Bitcoin Knots"
	case ImplBtcd:
		return "btcd"
	case ImplUtreexod:
		return "Utreexod"
	case ImplFloresta:
		return "Floresta"
	default:
		return "Unknown"
	}
}

// ClassifierRule tags user agents that Match accepts with Impl.
type ClassifierRule struct {
	Impl  Impl
	Match func(userAgent string) bool
}

// RegexpRule matches a regular expression anywhere in the user agent.
func RegexpRule(impl Impl, pattern string) ClassifierRule {
	re := regexp.MustCompile(pattern)
	return ClassifierRule{Impl: impl, Match: re.MatchString}
}

// ContainsRule matches a substring of the user agent.
func ContainsRule(impl Impl, substr string) ClassifierRule {
	return ClassifierRule{Impl: impl, Match: func(ua string) bool {
		return strings.Contains(ua, substr)
	}}
}

// DefaultRules is the built-in rule order. Knots advertises itself as
// Satoshi too, so it has to be checked before Core.
func DefaultRules() []ClassifierRule {
	return []ClassifierRule{
		RegexpRule(ImplKnots, `Satoshi.*Knots`),
		RegexpRule(ImplCore, `Satoshi`),
		ContainsRule(ImplBtcd, "btcd"),
		ContainsRule(ImplUtreexod, "utreexod"),
		ContainsRule(ImplFloresta, "floresta"),
	}
}

// Classifier applies an ordered rule list; the first match wins.
type Classifier struct {
	rules []ClassifierRule
}

// NewClassifier builds a classifier from rules, or DefaultRules when none
// are given.
func NewClassifier(rules ...ClassifierRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the first matching Impl, or ImplUnknown.
func (c *Classifier) Classify(userAgent string) Impl {
	for _, r := range c.rules {
		if r.Match(userAgent) {
			return r.Impl
		}
	}
	return ImplUnknown
}

var defaultClassifier = NewClassifier()

// Classify uses the default rules.
func Classify(userAgent string) Impl {
	return defaultClassifier.Classify(userAgent)
}
