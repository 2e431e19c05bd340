// Package classifier triages complaint descriptions into a category and an
// urgency with an ordered keyword rule list. The first matching rule wins, so
// rule order is part of the contract.
package classifier

import (
	"strings"

	"civicledger/internal/complaint/models"
)

const (
	matchedConfidence  = 0.95
	baselineConfidence = 0.5
)

// Rule maps any of its case-insensitive substring triggers to an outcome.
type Rule struct {
	Triggers []string
	Category string
	Urgency  models.Urgency
}

// Result is advisory: submissions may override category and urgency.
type Result struct {
	Category   string
	Urgency    models.Urgency
	Summary    string
	Confidence float64
}

// DefaultRules is the production rule list, in priority order.
var DefaultRules = []Rule{
	{Triggers: []string{"water", "leak", "flood"}, Category: models.CategoryWater, Urgency: models.UrgencyHigh},
	{Triggers: []string{"road", "pothole", "accident"}, Category: models.CategoryRoad, Urgency: models.UrgencyMedium},
	{Triggers: []string{"electric", "power", "light"}, Category: models.CategoryElectricity, Urgency: models.UrgencyCritical},
}

// Classifier is pure and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// New builds a classifier over rules, or DefaultRules when none are given.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		triggers := make([]string, len(r.Triggers))
		for j, t := range r.Triggers {
			triggers[j] = strings.ToLower(t)
		}
		normalized[i] = Rule{Triggers: triggers, Category: r.Category, Urgency: r.Urgency}
	}
	return &Classifier{rules: normalized}
}

// Classify never fails. Unmatched or empty text falls back to General/Low.
func (c *Classifier) Classify(description string) Result {
	text := strings.ToLower(description)
	for _, rule := range c.rules {
		for _, trigger := range rule.Triggers {
			if strings.Contains(text, trigger) {
				return result(rule.Category, rule.Urgency, matchedConfidence)
			}
		}
	}
	return result(models.CategoryGeneral, models.UrgencyLow, baselineConfidence)
}

func result(category string, urgency models.Urgency, confidence float64) Result {
	return Result{
		Category:   category,
		Urgency:    urgency,
		Summary:    "Automated summary: Issue identified regarding " + category + ".",
		Confidence: confidence,
	}
}
