package bank

import "regexp"

// Question type labels.
const (
	TypeCPT   = "CPT"
	TypeICD   = "ICD"
	TypeHCPCS = "HCPCS"
	TypeOther = "other"
)

// Compiled once; classification runs over whole banks.
var (
	cptPattern   = regexp.MustCompile(`(?i)\bcpt\b`)
	icdPattern   = regexp.MustCompile(`(?i)\bicd(\s*-?\s*10(\s*-?\s*cm)?)?\b`)
	hcpcsPattern = regexp.MustCompile(`(?i)\bhcpcs\b`)
)

// Classify labels a question by the coding system it asks about:
// CPT, ICD, HCPCS, or "other" when none is mentioned. CPT wins when
// several systems appear, matching the order the exams use.
func Classify(questionText string) string {
	switch {
	case cptPattern.MatchString(questionText):
		return TypeCPT
	case icdPattern.MatchString(questionText):
		return TypeICD
	case hcpcsPattern.MatchString(questionText):
		return TypeHCPCS
	default:
		return TypeOther
	}
}
