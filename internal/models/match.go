package models

import (
	"fmt"
	"strings"
)

// Recommendation is the hiring signal returned with a match score.
type Recommendation string

const (
	RecommendationStrongYes        Recommendation = "STRONG_YES"
	RecommendationYes              Recommendation = "YES"
	RecommendationMaybe            Recommendation = "MAYBE"
	RecommendationNo               Recommendation = "NO"
	RecommendationInsufficientData Recommendation = "INSUFFICIENT_DATA"
)

// Recommendations lists every accepted value, in the order the prompt presents them.
var Recommendations = []Recommendation{
	RecommendationStrongYes,
	RecommendationYes,
	RecommendationMaybe,
	RecommendationNo,
	RecommendationInsufficientData,
}

func ParseRecommendation(s string) (Recommendation, error) {
	switch Recommendation(strings.ToUpper(strings.TrimSpace(s))) {
	case RecommendationStrongYes:
		return RecommendationStrongYes, nil
	case RecommendationYes:
		return RecommendationYes, nil
	case RecommendationMaybe:
		return RecommendationMaybe, nil
	case RecommendationNo:
		return RecommendationNo, nil
	case RecommendationInsufficientData:
		return RecommendationInsufficientData, nil
	default:
		return "", fmt.Errorf("unknown recommendation %q", s)
	}
}

// Sub-score ceilings of the scoring rubric.
const (
	MaxTechnicalSkills    = 40
	MaxExperience         = 30
	MaxEducation          = 15
	MaxApplicationQuality = 15
)

type Breakdown struct {
	TechnicalSkills    int `json:"technical_skills"`
	Experience         int `json:"experience"`
	Education          int `json:"education"`
	ApplicationQuality int `json:"application_quality"`
}

// Validate checks every sub-score against its rubric ceiling.
func (b Breakdown) Validate() error {
	checks := []struct {
		name  string
		value int
		max   int
	}{
		{"technical_skills", b.TechnicalSkills, MaxTechnicalSkills},
		{"experience", b.Experience, MaxExperience},
		{"education", b.Education, MaxEducation},
		{"application_quality", b.ApplicationQuality, MaxApplicationQuality},
	}

	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return fmt.Errorf("breakdown %s=%d outside [0,%d]", c.name, c.value, c.max)
		}
	}
	return nil
}

// Total sums the sub-scores. The model's overall score is kept as reported even when it differs.
func (b Breakdown) Total() int {
	return b.TechnicalSkills + b.Experience + b.Education + b.ApplicationQuality
}

// MatchResult is the scorer output. A nil Rating means no usable score.
type MatchResult struct {
	Rating         *int           `json:"rating"`
	Breakdown      *Breakdown     `json:"breakdown,omitempty"`
	Reasoning      string         `json:"reasoning"`
	KeyStrengths   []string       `json:"key_strengths,omitempty"`
	Concerns       []string       `json:"concerns,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

// Unrated builds a result without a score.
func Unrated(reasoning string) MatchResult {
	return MatchResult{
		Reasoning:      reasoning,
		Recommendation: RecommendationInsufficientData,
	}
}
