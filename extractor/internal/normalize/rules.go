package normalize

import "regexp"

// Rules holds every phrase list, pattern and threshold the Normalizer uses.
// The values in DefaultRules are tuned against real job boards; override a
// field rather than editing the step code.
type Rules struct {
	// StructuredData matches one innermost schema.org style object literal.
	// It is applied repeatedly so nested objects unwind from the inside.
	StructuredData *regexp.Regexp
	// ScriptPatterns match inline handler code and simple declarations.
	ScriptPatterns []*regexp.Regexp

	// BoilerplatePhrases are removed wherever they occur, case-insensitively.
	BoilerplatePhrases []string
	// ChromePatterns remove UI chrome: consent banners, badges, tracking
	// codes, salary chart labels, board branding.
	ChromePatterns []*regexp.Regexp

	// FooterMarkers start a trailing metadata block.
	FooterMarkers []*regexp.Regexp
	// FooterLineMax stops the backward footer scan at the first longer
	// non-marker line.
	FooterLineMax int
	// FooterWindow caps how many non-blank lines the footer scan visits
	// past the end or the last marker seen.
	FooterWindow int

	// HeaderKeywords start a header line (rule b).
	HeaderKeywords []string
	// MajorSections get two blank lines before them instead of one.
	MajorSections []string
	// HeaderColonMax is the longest line rule (a) accepts.
	HeaderColonMax int
	// HeaderKeywordMax is the exclusive length bound of rule (b).
	HeaderKeywordMax int
	// UpperMaxWords bounds rule (c).
	UpperMaxWords int
	// TitleMinWords and TitleMaxWords bound rule (d).
	TitleMinWords, TitleMaxWords int
	// TitleRatio is the capitalised word share rule (d) must exceed.
	TitleRatio float64

	// CompensationPatterns detect salary paragraphs.
	CompensationPatterns []*regexp.Regexp
}

// DefaultRules returns the tuned rule set.
func DefaultRules() Rules {
	return Rules{
		StructuredData: regexp.MustCompile(`\{[^{}]*"(?:@context|@type|datePosted|validThrough|hiringOrganization|jobLocation|baseSalary|employmentType|identifier)"\s*:[^{}]*\}`),
		ScriptPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\bon[a-z]+\s*=\s*(?:"[^"]*"|'[^']*')`),
			regexp.MustCompile(`javascript:[^\s"'<>]*`),
			regexp.MustCompile(`(?m)^[ \t]*(?:var|let|const)[ \t]+[A-Za-z_$][\w$]*\s*=.*$`),
			regexp.MustCompile(`(?m)^[ \t]*function[ \t]*[A-Za-z_$]?[\w$]*\s*\([^)]*\)\s*\{.*$`),
			regexp.MustCompile(`(?m)^.*(?:window\.[A-Za-z_$][\w$]*\s*=|dataLayer\.push\(|gtag\(|document\.getElementById\().*$`),
		},

		BoilerplatePhrases: []string{
			"apply for this job", "apply for this position", "apply now", "easy apply",
			"sign in to apply", "click here to apply", "be an early applicant",
			"create alert", "create job alert", "set job alert",
			"receive similar jobs by email", "get similar jobs by email", "email me similar jobs",
			"save this job", "save job", "share this job", "report this job",
			"back to jobs", "view all jobs", "see all jobs",
			"show more", "show less", "see more", "read more",
		},
		ChromePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?im)^.*\b(?:we use cookies|this (?:web)?site uses cookies|accept (?:all )?cookies|reject all cookies|cookie (?:settings|preferences|policy|consent))\b.*$`),
			regexp.MustCompile(`(?m)^[ \t]*(?:NEW|New!?)[ \t]*$`),
			regexp.MustCompile(`(?im)^[ \t]*(?:promoted|actively recruiting|featured)[ \t]*$`),
			regexp.MustCompile(`#[A-Z]{2}-[A-Za-z0-9]+\b`),
			regexp.MustCompile(`(?m)^[ \t]*(?:[$€£][ \t]?\d+(?:\.\d+)?[kK][ \t]*){2,}$`),
			regexp.MustCompile(`(?im)^[ \t]*(?:low|median|high|average|avg\.?)[ \t]*$`),
			regexp.MustCompile(`(?im)^[ \t]*(?:powered by[ \t]+)?(?:glassdoor|indeed|linkedin|ziprecruiter|monster|greenhouse|lever|workday|smartrecruiters|ashby|jobvite|icims|bamboohr|workable|wellfound)(?:[ \t]+logo)?[ \t]*$`),
			regexp.MustCompile(`(?i)\bpowered by\s+(?:greenhouse|lever|workday|smartrecruiters|ashby|jobvite|icims|bamboohr|workable)\b`),
		},

		FooterMarkers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(?:locations?|job functions?|employment type|seniority level|industries|job type|job id|req(?:uisition)? id|date posted|posted)\s*:?$`),
			regexp.MustCompile(`(?i)equal (?:employment )?opportunity employer`),
			regexp.MustCompile(`(?i)without regard to (?:race|color|religion|sex)`),
			regexp.MustCompile(`(?i)^(?:eeo|eoe)\b`),
			regexp.MustCompile(`^\d{5}(?:-\d{4})?$`),
			regexp.MustCompile(`(?i)^need help\b`),
		},
		FooterLineMax: 60,
		FooterWindow:  30,

		HeaderKeywords: []string{
			"Responsibilities", "Requirements", "Qualifications", "About", "Benefits",
			"Skills", "Experience", "Overview", "Description", "Summary", "Compensation",
			"Duties", "Education", "Perks", "Preferred", "Minimum", "Nice to have",
			"What you", "Who you", "Your role", "The role", "Why join", "What we offer",
			"We offer", "Salary", "Pay range",
		},
		MajorSections: []string{
			"Overview", "Responsibilities", "Requirements", "Qualifications", "About",
			"Description", "Summary", "Benefits", "Compensation", "Experience", "Skills",
		},
		HeaderColonMax:   60,
		HeaderKeywordMax: 80,
		UpperMaxWords:    3,
		TitleMinWords:    2,
		TitleMaxWords:    8,
		TitleRatio:       0.6,

		CompensationPatterns: []*regexp.Regexp{
			regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d+)?\s?[kK]?\s*(?:-|\x{2013}|\x{2014}|to)\s*[$€£]?\s?\d`),
			regexp.MustCompile(`(?i)\b\d[\d,.]*\s?(?:USD|EUR|GBP|CAD)\b`),
			regexp.MustCompile(`(?i)\b(?:compensation|salary range|base pay range|pay range)\b`),
		},
	}
}
