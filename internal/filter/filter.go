package filter

import (
	"strings"

	"github.com/amishk599/jobsieve/internal/model"
)

// Reason names the predicate that rejected a posting. Empty means it passed.
type Reason string

const (
	Passed           Reason = ""
	ReasonTitle      Reason = "title_excluded"
	ReasonLocation   Reason = "location"
	ReasonSalary     Reason = "salary_out_of_range"
	ReasonDiscipline Reason = "discipline_excluded"
)

// LocationRule is either an allow-list or a deny-list over the extracted
// location token; the two policies are never combined.
type LocationRule struct {
	Exclude bool // false: keep only matches; true: drop matches
	Terms   []string
}

// IncludeLocations keeps postings whose location contains any of terms.
func IncludeLocations(terms ...string) LocationRule {
	return LocationRule{Terms: terms}
}

// ExcludeLocations drops postings whose location contains any of terms.
func ExcludeLocations(terms ...string) LocationRule {
	return LocationRule{Exclude: true, Terms: terms}
}

func (r LocationRule) allows(location string) bool {
	hit := containsAny(location, r.Terms)
	if r.Exclude {
		return !hit
	}
	return hit
}

// SalaryRange is an inclusive [Min, Max] bound. The -1 sentinel fails any
// range with a non-negative minimum, so unparseable salaries never qualify.
type SalaryRange struct {
	Min int
	Max int
}

func (r SalaryRange) contains(salary int) bool {
	return salary >= r.Min && salary <= r.Max
}

// Chain is the first filter stage. Predicates run in order and stop at the
// first failure: title exclusion, location rule, salary range.
type Chain struct {
	titleExclude []string
	location     LocationRule
	salary       SalaryRange
}

// NewChain returns a stage-one filter. Title terms match as substrings of the
// lowercased title, so they are expected in lowercase.
func NewChain(titleExclude []string, location LocationRule, salary SalaryRange) *Chain {
	return &Chain{
		titleExclude: titleExclude,
		location:     location,
		salary:       salary,
	}
}

// Pass reports whether p advances to enrichment and, if not, why.
func (c *Chain) Pass(p model.Posting) (bool, Reason) {
	if containsAny(p.Title, c.titleExclude) {
		return false, ReasonTitle
	}
	if !c.location.allows(p.Location) {
		return false, ReasonLocation
	}
	if !c.salary.contains(p.Salary) {
		return false, ReasonSalary
	}
	return true, Passed
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
