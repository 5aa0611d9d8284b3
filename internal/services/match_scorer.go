package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
)

const matchTemperature = 0.2

// MatchScorer rates how well an application fits a job. It never returns an error:
// every failure degrades to an unrated result with INSUFFICIENT_DATA.
type MatchScorer interface {
	Score(ctx context.Context, in MatchInput) models.MatchResult
}

type matchScorer struct {
	gemini  GeminiService
	prompts *PromptBuilder
	schema  *genai.Schema
	logger  *zap.Logger
}

// NewMatchScorer builds a scorer. A nil gemini means no credential is configured.
func NewMatchScorer(gemini GeminiService, log *zap.Logger) MatchScorer {
	return &matchScorer{
		gemini:  gemini,
		prompts: NewPromptBuilder(),
		schema:  MatchScoreSchema(),
		logger:  logger.OrNop(log),
	}
}

func (m *matchScorer) Score(ctx context.Context, in MatchInput) models.MatchResult {
	if m.gemini == nil {
		m.logger.Warn("match scoring skipped: gemini api key not configured")
		return models.Unrated("No API key configured")
	}

	response, err := m.gemini.GenerateJSON(ctx, m.prompts.BuildMatchScorePrompt(in), m.schema, matchTemperature)
	if err != nil {
		m.logger.Error("match score generation failed", zap.Error(err))
		return models.Unrated("Error: " + err.Error())
	}

	result, err := parseMatchResponse(response)
	if err != nil {
		m.logger.Warn("match score response rejected",
			zap.Error(err),
			zap.String("response_preview", logger.TruncateForLog(response, maxGeminiLogPreview)),
		)
		return models.Unrated("Error: " + err.Error())
	}

	if total := result.Breakdown.Total(); total != *result.Rating {
		m.logger.Debug("overall score differs from breakdown sum",
			zap.Int("overall_score", *result.Rating),
			zap.Int("breakdown_total", total),
		)
	}

	return result
}

// MatchScoreSchema is the response schema the model output is constrained to.
func MatchScoreSchema() *genai.Schema {
	integer := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeInteger, Description: desc}
	}
	stringList := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	recommendations := make([]string, 0, len(models.Recommendations))
	for _, r := range models.Recommendations {
		recommendations = append(recommendations, string(r))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overall_score": integer("0-100"),
			"breakdown": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"technical_skills":    integer(fmt.Sprintf("0-%d", models.MaxTechnicalSkills)),
					"experience":          integer(fmt.Sprintf("0-%d", models.MaxExperience)),
					"education":           integer(fmt.Sprintf("0-%d", models.MaxEducation)),
					"application_quality": integer(fmt.Sprintf("0-%d", models.MaxApplicationQuality)),
				},
				Required: []string{"technical_skills", "experience", "education", "application_quality"},
			},
			"reasoning":     {Type: genai.TypeString},
			"key_strengths": stringList,
			"concerns":      stringList,
			"recommendation": {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   recommendations,
			},
		},
		Required: []string{"overall_score", "breakdown", "reasoning", "key_strengths", "concerns", "recommendation"},
	}
}

type rawBreakdown struct {
	TechnicalSkills    *float64 `json:"technical_skills"`
	Experience         *float64 `json:"experience"`
	Education          *float64 `json:"education"`
	ApplicationQuality *float64 `json:"application_quality"`
}

type rawMatchResponse struct {
	OverallScore   *float64      `json:"overall_score"`
	Breakdown      *rawBreakdown `json:"breakdown"`
	Reasoning      *string       `json:"reasoning"`
	KeyStrengths   *[]string     `json:"key_strengths"`
	Concerns       *[]string     `json:"concerns"`
	Recommendation *string       `json:"recommendation"`
}

// parseMatchResponse validates the model output against the response schema.
// Any violation is an error; only overall_score is clamped rather than rejected.
func parseMatchResponse(response string) (models.MatchResult, error) {
	var raw rawMatchResponse
	if err := json.Unmarshal([]byte(extractJSON(response)), &raw); err != nil {
		return models.MatchResult{}, fmt.Errorf("malformed match response: %w", err)
	}

	var missing []string
	if raw.OverallScore == nil {
		missing = append(missing, "overall_score")
	}
	if raw.Breakdown == nil {
		missing = append(missing, "breakdown")
	} else {
		for name, v := range map[string]*float64{
			"breakdown.technical_skills":    raw.Breakdown.TechnicalSkills,
			"breakdown.experience":          raw.Breakdown.Experience,
			"breakdown.education":           raw.Breakdown.Education,
			"breakdown.application_quality": raw.Breakdown.ApplicationQuality,
		} {
			if v == nil {
				missing = append(missing, name)
			}
		}
	}
	if raw.Reasoning == nil {
		missing = append(missing, "reasoning")
	}
	if raw.KeyStrengths == nil {
		missing = append(missing, "key_strengths")
	}
	if raw.Concerns == nil {
		missing = append(missing, "concerns")
	}
	if raw.Recommendation == nil {
		missing = append(missing, "recommendation")
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return models.MatchResult{}, fmt.Errorf("match response missing fields: %s", strings.Join(missing, ", "))
	}

	breakdown := models.Breakdown{
		TechnicalSkills:    roundScore(*raw.Breakdown.TechnicalSkills),
		Experience:         roundScore(*raw.Breakdown.Experience),
		Education:          roundScore(*raw.Breakdown.Education),
		ApplicationQuality: roundScore(*raw.Breakdown.ApplicationQuality),
	}
	if err := breakdown.Validate(); err != nil {
		return models.MatchResult{}, err
	}

	recommendation, err := models.ParseRecommendation(*raw.Recommendation)
	if err != nil {
		return models.MatchResult{}, err
	}

	rating := clampScore(roundScore(*raw.OverallScore))

	return models.MatchResult{
		Rating:         &rating,
		Breakdown:      &breakdown,
		Reasoning:      strings.TrimSpace(*raw.Reasoning),
		KeyStrengths:   *raw.KeyStrengths,
		Concerns:       *raw.Concerns,
		Recommendation: recommendation,
	}, nil
}

func roundScore(v float64) int {
	return int(math.Round(v))
}

func clampScore(v int) int {
	return min(100, max(0, v))
}

// extractJSON strips markdown fences and surrounding prose from a model reply.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}
