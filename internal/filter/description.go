package filter

// DescriptionStage is the optional second stage, applied to the fetched
// description text. Matching is case-sensitive, as the terms are matched
// against the page text verbatim.
type DescriptionStage struct {
	excludeDisciplines []string
	keywords           []string
}

// NewDescriptionStage returns a stage that drops descriptions mentioning any of
// excludeDisciplines and tags those mentioning any of keywords.
func NewDescriptionStage(excludeDisciplines, keywords []string) *DescriptionStage {
	return &DescriptionStage{
		excludeDisciplines: excludeDisciplines,
		keywords:           keywords,
	}
}

// Evaluate reports whether the description is kept and whether it is a
// keyword hit. Hits never affect inclusion.
func (s *DescriptionStage) Evaluate(description string) (keep bool, hit bool, reason Reason) {
	if containsAny(description, s.excludeDisciplines) {
		return false, false, ReasonDiscipline
	}
	return true, containsAny(description, s.keywords), Passed
}
