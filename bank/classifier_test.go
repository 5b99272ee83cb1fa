package bank

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"cpt", "Which CPT code reports a laparoscopic appendectomy?", TypeCPT},
		{"cpt lowercase", "what cpt code applies here?", TypeCPT},
		{"icd", "Select the ICD-10-CM code for acute bronchitis.", TypeICD},
		{"icd spaced", "Select the ICD 10 code for this diagnosis.", TypeICD},
		{"icd bare", "Which ICD code is reported?", TypeICD},
		{"hcpcs", "Which HCPCS Level II code covers the wheelchair?", TypeHCPCS},
		{"cpt beats icd", "Report the CPT code, not the ICD-10-CM code.", TypeCPT},
		{"cpt beats hcpcs", "CPT or HCPCS: which code applies?", TypeCPT},
		{"other", "What does the abbreviation NPO mean?", TypeOther},
		{"no partial word match", "The clinic's micdrop handout is irrelevant.", TypeOther},
		{"empty", "", TypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
