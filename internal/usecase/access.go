package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

var (
	adminCodePattern = regexp.MustCompile(`^(\d)(\d)([A-Z]+)$`)
	hodCodePattern   = regexp.MustCompile(`^HOD-([A-Z]+)$`)
)

// ParseAccessCode maps a dashboard access code to its scope.
//
//	"35CSE"   → admin of CSE, year 3, semester 5
//	"HOD-ECE" → head of ECE
//
// Codes are trimmed and upper-cased first. Unknown shapes or departments
// yield ErrUnauthorized.
func ParseAccessCode(code string) (domain.AccessContext, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if m := adminCodePattern.FindStringSubmatch(code); m != nil {
		dept := domain.Department(m[3])
		if !dept.Valid() {
			return domain.AccessContext{}, fmt.Errorf("%w: unknown department %q", domain.ErrUnauthorized, m[3])
		}
		return domain.AccessContext{
			Role:       domain.RoleAdmin,
			Department: dept,
			Year:       int(m[1][0] - '0'),
			Semester:   int(m[2][0] - '0'),
		}, nil
	}
	if m := hodCodePattern.FindStringSubmatch(code); m != nil {
		dept := domain.Department(m[1])
		if !dept.Valid() {
			return domain.AccessContext{}, fmt.Errorf("%w: unknown department %q", domain.ErrUnauthorized, m[1])
		}
		return domain.AccessContext{Role: domain.RoleHOD, Department: dept}, nil
	}
	return domain.AccessContext{}, fmt.Errorf("%w: invalid access code", domain.ErrUnauthorized)
}
