package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/master.txt
	masterRaw string

	//go:embed template/sales.txt
	salesRaw string

	//go:embed template/verification.txt
	verificationRaw string

	//go:embed template/underwriting.txt
	underwritingRaw string

	//go:embed template/sanction.txt
	sanctionRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Master       string
	Sales        string
	Verification string
	Underwriting string
	Sanction     string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Master:       strings.TrimSpace(masterRaw),
		Sales:        strings.TrimSpace(salesRaw),
		Verification: strings.TrimSpace(verificationRaw),
		Underwriting: strings.TrimSpace(underwritingRaw),
		Sanction:     strings.TrimSpace(sanctionRaw),
	}
}
