package services

import (
	"fmt"
	"strconv"
	"strings"

	"joblinker/api/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildResumeSummaryPrompt creates the prompt for a hiring manager facing resume summary.
func (pb *PromptBuilder) BuildResumeSummaryPrompt(resumeText string) string {
	return fmt.Sprintf(`Analyze this resume and create a comprehensive summary for a hiring manager.

Resume Text:
%s

Provide a structured summary that includes:
1. Professional Summary (2-3 sentences)
2. Key Skills (bulleted list)
3. Work Experience Highlights (key roles and achievements)
4. Education and Certifications
5. Notable Projects or Accomplishments

Format your response in markdown. Be concise but thorough.`, resumeText)
}

// MatchInput is everything the scorer knows about one application.
type MatchInput struct {
	JobTitle           string
	JobDescription     string
	ExperienceLevel    string
	JobType            string
	RequiredSkills     *string
	PreferredSkills    *string
	MinYearsExperience *int
	RequiredEducation  *string
	ResumeSummary      string
	CoverLetter        string
}

// BuildMatchScorePrompt creates the screening prompt, including the full scoring rubric.
func (pb *PromptBuilder) BuildMatchScorePrompt(in MatchInput) string {
	minYears := "Not specified - infer from experience level"
	if in.MinYearsExperience != nil && *in.MinYearsExperience > 0 {
		minYears = strconv.Itoa(*in.MinYearsExperience)
	}

	recommendations := make([]string, 0, len(models.Recommendations))
	for _, r := range models.Recommendations {
		recommendations = append(recommendations, strconv.Quote(string(r)))
	}

	return fmt.Sprintf(`You are an expert recruiter conducting initial candidate screening.

**Job Requirements:**
Title: %s
Experience Level: %s
Type: %s
Description: %s

Required Skills: %s
Preferred Skills: %s
Minimum Years of Experience: %s
Required Education: %s

**Candidate Materials:**
Resume Summary: %s
Cover Letter: %s

**Evaluation Framework:**

1. **Technical Skills Match (%d points)**
   - If required skills are specified, award points proportionally for each skill demonstrated
   - If not specified, extract key skills from job description and evaluate match
   - Half credit for related/transferable skills
   - If no resume provided at all, score 0

2. **Experience Relevance (%d points)**
   - Years of experience: 0-10 points (compare to minimum or typical for experience level)
   - Industry relevance: 0-10 points
   - Role/responsibility match: 0-10 points

3. **Education & Credentials (%d points)**
   - Meets minimum education: 10 points
   - Relevant certifications: 5 points
   - If education requirements not specified, score based on role appropriateness

4. **Application Quality & Motivation (%d points)**
   - Clear career trajectory: 0-5 points
   - Tailored application: 0-5 points
   - Communication quality: 0-5 points

**Scoring Guidelines:**
- **80-100**: Exceptional fit, strong hire signal
- **65-79**: Good fit, worth interviewing
- **50-64**: Moderate fit, consider if candidate pool is limited
- **30-49**: Weak fit, significant gaps
- **0-29**: Poor fit or insufficient information

**Output Requirements:**
Return valid JSON with:
- overall_score: integer 0-100
- breakdown: object with technical_skills (0-%d), experience (0-%d), education (0-%d), application_quality (0-%d)
- reasoning: 2-4 sentences explaining the score
- key_strengths: array of 2-3 main strengths
- concerns: array of 2-3 main concerns or gaps
- recommendation: one of %s

**Important:**
- Be objective and evidence-based
- Don't penalize for missing non-essential materials
- If information is insufficient, score conservatively and note in reasoning
- Focus on job-relevant qualifications`,
		in.JobTitle,
		in.ExperienceLevel,
		in.JobType,
		in.JobDescription,
		orDefault(in.RequiredSkills, "Not specified - infer from job description"),
		orDefault(in.PreferredSkills, "Not specified"),
		minYears,
		orDefault(in.RequiredEducation, "Not specified"),
		orDefault(&in.ResumeSummary, "Not provided"),
		orDefault(&in.CoverLetter, "Not provided"),
		models.MaxTechnicalSkills,
		models.MaxExperience,
		models.MaxEducation,
		models.MaxApplicationQuality,
		models.MaxTechnicalSkills,
		models.MaxExperience,
		models.MaxEducation,
		models.MaxApplicationQuality,
		strings.Join(recommendations, ", "),
	)
}

func orDefault(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return strings.TrimSpace(*s)
}
