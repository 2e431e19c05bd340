package classifier

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"civicledger/internal/complaint/models"
)

type ClassifierSuite struct {
	suite.Suite
	c *Classifier
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.c = New()
}

func (s *ClassifierSuite) TestRules() {
	cases := []struct {
		text     string
		category string
		urgency  models.Urgency
	}{
		{"power outage on main street", models.CategoryElectricity, models.UrgencyCritical},
		{"Pipe LEAK in basement", models.CategoryWater, models.UrgencyHigh},
		{"huge pothole near school", models.CategoryRoad, models.UrgencyMedium},
		{"street light broken", models.CategoryElectricity, models.UrgencyCritical},
		{"noisy neighbours", models.CategoryGeneral, models.UrgencyLow},
	}
	for _, tc := range cases {
		s.Run(tc.text, func() {
			got := s.c.Classify(tc.text)
			s.Equal(tc.category, got.Category)
			s.Equal(tc.urgency, got.Urgency)
			s.Equal("Automated summary: Issue identified regarding "+tc.category+".", got.Summary)
		})
	}
}

func (s *ClassifierSuite) TestFirstMatchWins() {
	// "flood" (water) outranks "road" even though both appear.
	got := s.c.Classify("road flooded after accident")
	s.Equal(models.CategoryWater, got.Category)
	s.Equal(models.UrgencyHigh, got.Urgency)
	s.Equal(matchedConfidence, got.Confidence)
}

func (s *ClassifierSuite) TestEmptyInput() {
	got := s.c.Classify("")
	s.Equal(models.CategoryGeneral, got.Category)
	s.Equal(models.UrgencyLow, got.Urgency)
	s.Equal(baselineConfidence, got.Confidence)
}

func (s *ClassifierSuite) TestDeterministic() {
	const text = "electric cable sparking by the road"
	first := s.c.Classify(text)
	for range 100 {
		s.Equal(first, s.c.Classify(text))
	}
}

func (s *ClassifierSuite) TestCustomRulesAreLowercased() {
	c := New(Rule{Triggers: []string{"GRAFFITI"}, Category: models.CategoryGeneral, Urgency: models.UrgencyMedium})
	got := c.Classify("graffiti on the bridge")
	s.Equal(models.UrgencyMedium, got.Urgency)
}
