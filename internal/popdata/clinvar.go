package popdata

import "strings"

// ClinSig is a ClinVar clinical significance interpretation.
type ClinSig string

const (
	ClinSigNotProvided                 ClinSig = ""
	ClinSigPathogenic                  ClinSig = "PATHOGENIC"
	ClinSigPathogenicOrLikelyPathogenic ClinSig = "PATHOGENIC_OR_LIKELY_PATHOGENIC"
	ClinSigLikelyPathogenic            ClinSig = "LIKELY_PATHOGENIC"
	ClinSigUncertainSignificance       ClinSig = "UNCERTAIN_SIGNIFICANCE"
	ClinSigLikelyBenign                ClinSig = "LIKELY_BENIGN"
	ClinSigBenignOrLikelyBenign        ClinSig = "BENIGN_OR_LIKELY_BENIGN"
	ClinSigBenign                      ClinSig = "BENIGN"
	ClinSigConflicting                 ClinSig = "CONFLICTING_PATHOGENICITY_INTERPRETATIONS"
	ClinSigOther                       ClinSig = "OTHER"
)

// ParseClinSig accepts ClinVar CLNSIG spellings such as
// "Likely_pathogenic" or "Pathogenic/Likely_pathogenic".
func ParseClinSig(s string) ClinSig {
	u := strings.ToUpper(strings.TrimSpace(s))
	u = strings.NewReplacer(" ", "_", ",", "_").Replace(u)
	switch u {
	case "", ".":
		return ClinSigNotProvided
	case "PATHOGENIC":
		return ClinSigPathogenic
	case "PATHOGENIC/LIKELY_PATHOGENIC", "PATHOGENIC_OR_LIKELY_PATHOGENIC":
		return ClinSigPathogenicOrLikelyPathogenic
	case "LIKELY_PATHOGENIC":
		return ClinSigLikelyPathogenic
	case "UNCERTAIN_SIGNIFICANCE":
		return ClinSigUncertainSignificance
	case "LIKELY_BENIGN":
		return ClinSigLikelyBenign
	case "BENIGN/LIKELY_BENIGN", "BENIGN_OR_LIKELY_BENIGN":
		return ClinSigBenignOrLikelyBenign
	case "BENIGN":
		return ClinSigBenign
	case "CONFLICTING_INTERPRETATIONS_OF_PATHOGENICITY", "CONFLICTING_PATHOGENICITY_INTERPRETATIONS":
		return ClinSigConflicting
	}
	return ClinSigOther
}

// IsPathogenicOrLikely reports whether sig asserts (likely) pathogenicity.
func (sig ClinSig) IsPathogenicOrLikely() bool {
	switch sig {
	case ClinSigPathogenic, ClinSigPathogenicOrLikelyPathogenic, ClinSigLikelyPathogenic:
		return true
	}
	return false
}

// ClinVarData is the ClinVar record for an allele.
type ClinVarData struct {
	AlleleID     string
	Significance ClinSig
	ReviewStatus string
}

// IsEmpty reports whether no ClinVar record is present.
func (c ClinVarData) IsEmpty() bool {
	return c.AlleleID == "" && c.Significance == ClinSigNotProvided
}

// Stars returns the 0-4 review confidence rating for the review status.
func (c ClinVarData) Stars() int {
	rs := strings.ToLower(strings.ReplaceAll(c.ReviewStatus, "_", " "))
	switch {
	case strings.HasPrefix(rs, "no "):
		return 0
	case strings.Contains(rs, "practice guideline"):
		return 4
	case strings.Contains(rs, "expert panel"):
		return 3
	case strings.Contains(rs, "multiple submitters") && strings.Contains(rs, "no conflicts"):
		return 2
	case strings.Contains(rs, "criteria provided"):
		return 1
	}
	return 0
}

// Properties is everything an allele store holds for one AlleleKey.
type Properties struct {
	ID              string
	Frequencies     []Frequency
	Pathogenicities []Pathogenicity
	ClinVar         ClinVarData
}

// IsEmpty reports whether the properties carry no data.
func (p Properties) IsEmpty() bool {
	return p.ID == "" && len(p.Frequencies) == 0 && len(p.Pathogenicities) == 0 && p.ClinVar.IsEmpty()
}

// Merge combines two property sets; values already in p win.
func (p Properties) Merge(other Properties) Properties {
	out := Properties{ID: p.ID, ClinVar: p.ClinVar}
	if out.ID == "" {
		out.ID = other.ID
	}
	if out.ClinVar.IsEmpty() {
		out.ClinVar = other.ClinVar
	}
	out.Frequencies = append(append(out.Frequencies, p.Frequencies...), other.Frequencies...)
	out.Pathogenicities = append(append(out.Pathogenicities, p.Pathogenicities...), other.Pathogenicities...)
	return out
}

// FrequencyData converts the stored frequencies into resolved data.
func (p Properties) FrequencyData() FrequencyData {
	return NewFrequencyData(p.ID, p.Frequencies...)
}

// PathogenicityData converts the stored scores into resolved data.
func (p Properties) PathogenicityData() PathogenicityData {
	return NewPathogenicityData(p.ClinVar, p.Pathogenicities...)
}
