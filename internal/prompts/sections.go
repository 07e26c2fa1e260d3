package prompts

// Application sections with a writing guide.
const (
	SectionOverview      = "사업 개요"
	SectionTechnology    = "기술 현황"
	SectionMarket        = "시장 분석"
	SectionCommercialize = "사업화 전략"
	SectionImpact        = "기대 효과"
)

const defaultSectionGuide = "해당 섹션의 내용을 작성해주세요."

var sectionGuides = map[string]string{
	SectionOverview: `사업의 필요성과 목적을 기술해주세요.
- 현재 시장이나 사회의 문제점
- 사업이 필요한 이유
- 사업으로 달성하려는 목표`,
	SectionTechnology: `보유 기술을 상세히 기술해주세요.
- 핵심 기술의 특징과 차별성
- 기술 개발 현황과 수준
- 특허 및 지식재산권 현황`,
	SectionMarket: `목표 시장을 분석해주세요.
- TAM/SAM/SOM 시장 규모
- 경쟁 현황과 경쟁사 분석
- 시장 진입 전략`,
	SectionCommercialize: `사업화 계획을 상세히 기술해주세요.
- 비즈니스 모델과 수익 구조
- 마케팅 및 영업 전략
- 단계별 추진 계획`,
	SectionImpact: `사업 추진 시 기대 효과를 기술해주세요.
- 매출, 고용 등 경제적 효과
- 기술적 효과
- 사회적 효과`,
}

// SectionGuide returns the writing guide of a section, or a generic
// instruction for sections without one.
func SectionGuide(section string) string {
	if g, ok := sectionGuides[section]; ok {
		return g
	}
	return defaultSectionGuide
}

// Sections lists the sections that have a writing guide, in document order.
func Sections() []string {
	return []string{SectionOverview, SectionTechnology, SectionMarket, SectionCommercialize, SectionImpact}
}
