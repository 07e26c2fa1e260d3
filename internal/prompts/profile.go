package prompts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
)

var certificationLabels = map[string]string{
	"venture":           "벤처기업",
	"innobiz":           "이노비즈",
	"mainbiz":           "메인비즈",
	"womanEnterprise":   "여성기업",
	"socialEnterprise":  "사회적기업",
	"researchInstitute": "기업부설연구소",
}

// CompanyProfile formats a company as the profile block prompts embed.
// Missing fields are written as "정보 없음" so the model does not guess.
func CompanyProfile(c *domain.Company, now time.Time) string {
	const unknown = "정보 없음"
	var b strings.Builder

	line := func(label, value string) {
		if value == "" {
			value = unknown
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, value)
	}

	line("기업명", c.Name)
	line("업종", c.Industry)

	employees := ""
	if c.EmployeeCount != nil {
		employees = strconv.Itoa(*c.EmployeeCount) + "명"
	}
	line("직원수", employees)

	founded := ""
	if c.FoundedDate != nil {
		founded = fmt.Sprintf("%s (업력 %d년)", c.FoundedDate.Format("2006-01-02"), yearsBetween(*c.FoundedDate, now))
	}
	line("설립일", founded)

	line("소재지", c.Location)

	revenue := ""
	if c.AnnualRevenue != nil {
		revenue = FormatKRW(*c.AnnualRevenue)
	}
	line("연매출", revenue)

	certs := make([]string, 0, len(c.Certifications))
	for _, cert := range c.Certifications {
		if label, ok := certificationLabels[cert]; ok {
			certs = append(certs, label)
		} else {
			certs = append(certs, cert)
		}
	}
	line("보유 인증", strings.Join(certs, ", "))
	line("기업 소개", c.Description)

	return strings.TrimRight(b.String(), "\n")
}

// FormatKRW renders a won amount in 억 or 만 units.
func FormatKRW(won int64) string {
	switch {
	case won >= 100_000_000:
		return strconv.FormatFloat(float64(won)/100_000_000, 'f', -1, 64) + "억 원"
	case won >= 10_000:
		return strconv.FormatFloat(float64(won)/10_000, 'f', -1, 64) + "만 원"
	default:
		return strconv.FormatInt(won, 10) + "원"
	}
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.YearDay() < from.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
