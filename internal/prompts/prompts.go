// Package prompts holds the built-in prompt templates and the data each of
// them is rendered with. Templates use text/template syntax, so a version
// stored in the database is rendered with exactly the same data as the
// built-in template it replaces.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/choishiam0906/govhelper/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template is a prompt plus the generation settings it is sent with.
type Template struct {
	Type        domain.PromptType
	System      string
	Source      string
	Temperature float32
	MaxTokens   int
	// JSON marks prompts whose answer is a single JSON object.
	JSON bool
}

const (
	jsonOnly      = " JSON 형식으로만 응답해야 합니다."
	writerSystem  = "당신은 정부지원사업 지원서 작성 전문가입니다. 전문적이고 설득력 있는 내용을 작성합니다."
	chatbotSystem = `당신은 정부지원사업 전문 상담사입니다. 사용자의 질문에 친절하고 정확하게 답변해주세요.

역할: 공고 안내, 지원자격 확인, 지원서 작성 도움, 매칭 결과 해석.
확실하지 않은 정보는 "정확하지 않을 수 있습니다"라고 안내하고, 법률이나 세무 문제는 전문가 상담을 권합니다.
친근한 해요체를 사용합니다.`
	// AnalystSystem is used for free-form streaming without a prompt type.
	AnalystSystem = "당신은 정부지원사업 매칭 전문가입니다. 정확하고 유용한 분석을 제공합니다."
)

// settings are keyed by type; Source is filled from templateFS for the
// types that have a built-in template.
var settings = map[domain.PromptType]Template{
	domain.PromptMatchingAnalysis: {
		System: "당신은 정부지원사업 매칭 전문가입니다." + jsonOnly, Temperature: 0.3, MaxTokens: 4096, JSON: true,
	},
	domain.PromptEligibilityParsing: {
		System: "당신은 정부지원사업 지원자격 분석 전문가입니다." + jsonOnly, Temperature: 0.2, MaxTokens: 2048, JSON: true,
	},
	domain.PromptApplicationSection: {System: writerSystem, Temperature: 0.5, MaxTokens: 4096},
	domain.PromptSectionImprovement: {System: writerSystem, Temperature: 0.5, MaxTokens: 4096},
	domain.PromptEvaluationExtraction: {
		System: "당신은 정부지원사업 평가기준 분석 전문가입니다." + jsonOnly, Temperature: 0.1, MaxTokens: 4000, JSON: true,
	},
	domain.PromptEvaluationMatching: {
		System: "당신은 정부지원사업 평가위원입니다." + jsonOnly, Temperature: 0.3, MaxTokens: 4096, JSON: true,
	},
	domain.PromptChatbot: {System: chatbotSystem, Temperature: 0.7, MaxTokens: 2048},
	domain.PromptApplicationScore: {
		System: "당신은 정부지원사업 지원서 평가 전문가입니다." + jsonOnly, Temperature: 0.3, MaxTokens: 4096, JSON: true,
	},
	domain.PromptSectionGuide: {System: writerSystem, Temperature: 0.5, MaxTokens: 2048},
}

// Settings returns the generation settings of a prompt type with an empty
// Source. Unknown types get conservative plain-text settings.
func Settings(t domain.PromptType) Template {
	s, ok := settings[t]
	if !ok {
		return Template{Type: t, System: AnalystSystem, Temperature: 0.3, MaxTokens: 2048}
	}
	s.Type = t
	return s
}

// Builtin returns the compiled-in template of a prompt type. Types that
// only exist as stored versions (application_score, section_guide) report
// false.
func Builtin(t domain.PromptType) (Template, bool) {
	src, err := templateFS.ReadFile("templates/" + string(t) + ".tmpl")
	if err != nil {
		return Template{}, false
	}
	tmpl := Settings(t)
	tmpl.Source = string(src)
	return tmpl, true
}

// WithSource returns a copy of the template using src instead of its own text.
func (t Template) WithSource(src string) Template {
	t.Source = src
	return t
}

// Render executes the template source with data. Referencing a field the
// data does not have is an error.
func (t Template) Render(data any) (string, error) {
	return Render(string(t.Type), t.Source, data)
}

// Render parses and executes a template source.
func Render(name, source string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

// MatchingData feeds the matching_analysis template.
type MatchingData struct {
	AnnouncementContent string
	CompanyProfile      string
	BusinessPlan        string
}

// EligibilityData feeds the eligibility_parsing template.
type EligibilityData struct {
	Title         string
	TargetCompany string
	Content       string
}

// SectionData feeds the application_section template.
type SectionData struct {
	Section             string
	Guide               string
	AnnouncementContent string
	CompanyProfile      string
	BusinessPlan        string
}

// ImprovementData feeds the section_improvement template.
type ImprovementData struct {
	Section             string
	CurrentContent      string
	AnnouncementContent string
	CompanyProfile      string
}

// EvaluationExtractionData feeds the evaluation_extraction template.
type EvaluationExtractionData struct {
	Title   string
	Content string
}

// EvaluationMatchingData feeds the evaluation_matching template.
type EvaluationMatchingData struct {
	CriteriaJSON   string
	CompanyProfile string
	BusinessPlan   string
}

// ChatbotData feeds the chatbot template. Context fields are optional.
type ChatbotData struct {
	Message             string
	CompanyProfile      string
	RecentMatches       string
	CurrentAnnouncement string
}
