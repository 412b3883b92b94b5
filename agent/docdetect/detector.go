// Package docdetect scans assistant replies for document upload requests so
// the transport layer can surface structured upload slots to the client.
package docdetect

import (
	"regexp"
	"strings"

	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
)

// uploadContext gates detection: a document mention only counts when the
// reply is actually asking the customer to hand something over. "Bank
// statement means proof of income" alone yields nothing.
var uploadContext = []*regexp.Regexp{
	regexp.MustCompile(`upload`),
	regexp.MustCompile(`share`),
	regexp.MustCompile(`provide`),
	regexp.MustCompile(`submit`),
	regexp.MustCompile(`send\s*(me|us)?`),
	regexp.MustCompile(`attach`),
	regexp.MustCompile(`need.*document`),
	regexp.MustCompile(`require.*document`),
	regexp.MustCompile(`please.*document`),
}

type documentRule struct {
	key         string
	patterns    []*regexp.Regexp
	name        string
	description string
}

// documentRules is ordered; Detect returns requirements in this canonical
// order regardless of where they appear in the text. PAN is deliberately
// absent: the assistant collects the PAN number in chat, never as an upload.
var documentRules = []documentRule{
	{
		key: "identity_proof",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`identity\s*proof`),
			regexp.MustCompile(`id\s*proof`),
			regexp.MustCompile(`photo\s*id`),
			regexp.MustCompile(`aadhaar`),
			regexp.MustCompile(`aadhar`),
			regexp.MustCompile(`voter\s*id`),
			regexp.MustCompile(`passport`),
			regexp.MustCompile(`driving\s*licen[sc]e`),
		},
		name:        "Identity Proof",
		description: "Aadhaar Card / Voter ID / Passport / Driving License",
	},
	{
		key: "address_proof",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`address\s*proof`),
		},
		name:        "Address Proof",
		description: "Aadhaar Card / Voter ID / Passport / Driving License",
	},
	{
		key: "bank_statement",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`bank\s*statement`),
			regexp.MustCompile(`salary\s*account\s*statement`),
		},
		name:        "Bank Statement",
		description: "Primary bank statement (salary account) for last 3 months",
	},
	{
		key: "salary_slip",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`salary\s*slip`),
			regexp.MustCompile(`pay\s*slip`),
			regexp.MustCompile(`salary\s*certificate`),
		},
		name:        "Salary Slips",
		description: "Salary slips for last 2 months",
	},
	{
		key: "employment_certificate",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`employment\s*certificate`),
			regexp.MustCompile(`employment\s*proof`),
			regexp.MustCompile(`job\s*certificate`),
		},
		name:        "Employment Certificate",
		description: "Certificate confirming at least 1 year of continuous employment",
	},
}

// Detect returns one requirement per mentioned document type, deduplicated,
// with name and description taken from the static catalog.
func Detect(reply string) []contract.DocumentRequirement {
	lower := strings.ToLower(reply)

	asking := false
	for _, re := range uploadContext {
		if re.MatchString(lower) {
			asking = true
			break
		}
	}
	if !asking {
		return nil
	}

	var reqs []contract.DocumentRequirement
	for _, rule := range documentRules {
		for _, re := range rule.patterns {
			if re.MatchString(lower) {
				reqs = append(reqs, contract.DocumentRequirement{
					Name:        rule.name,
					Description: rule.description,
				})
				break
			}
		}
	}
	return reqs
}
