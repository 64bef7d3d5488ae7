package profile

// Fallback is used for hosts no Builtin entry matches. Selector order runs
// from attribute patterns to common ids, data attributes, semantic
// containers and finally broad content wrappers.
var Fallback = Profile{
	Selectors: []string{
		`[class*="job-description"]`, `[id*="job-description"]`,
		`[class*="jobDescription"]`, `[id*="jobDescription"]`,
		`[class*="job-details"]`, `[id*="job-details"]`,
		`[class*="description"]`, `[id*="description"]`,
		`[class*="posting"]`, `[id*="posting"]`,
		"#jobDescriptionText", "#job_description", "#description",
		`[data-testid*="description"]`, `[data-automation*="description"]`,
		`[data-qa*="description"]`, `[data-ui*="description"]`,
		"article", "main", `[role="main"]`, "#main-content", ".main-content",
		"#content", ".content", ".container", "body",
	},
	RemoveSelectors: []string{"nav", "header", "footer"},
}

// Builtin is the known site table in match priority order.
var Builtin = []Profile{
	{
		MatchSuffix: "greenhouse.io",
		Selectors: []string{
			".job__description", "#content", `[class*="job-post"]`, "#app_body",
		},
		RemoveSelectors: []string{"#application", "#application_form", ".application--wrapper", "#header"},
	},
	{
		MatchSuffix: "lever.co",
		Selectors: []string{
			`[data-qa="job-description"]`, ".posting-page .section-wrapper", ".posting-description", ".content",
		},
		RemoveSelectors: []string{".posting-apply", ".postings-btn-wrapper", ".main-footer", ".posting-headline"},
	},
	{
		MatchSuffix:     "myworkdayjobs.com",
		Selectors:       []string{`[data-automation-id="jobPostingDescription"]`, `[data-automation-id="job-posting-details"]`},
		WaitSelector:    `[data-automation-id="jobPostingDescription"]`,
		RemoveSelectors: []string{`[data-automation-id="applyButton"]`, `[data-automation-id="similarJobs"]`},
	},
	{
		MatchSuffix:     "ashbyhq.com",
		Selectors:       []string{`[class*="_descriptionText"]`, `[class*="job-posting-right-pane"]`, "main"},
		WaitSelector:    `[class*="_descriptionText"]`,
		RemoveSelectors: []string{`[class*="_applicationForm"]`},
	},
	{
		MatchSuffix:     "smartrecruiters.com",
		Selectors:       []string{`[itemprop="description"]`, ".job-sections", "main"},
		WaitSelector:    `[itemprop="description"]`,
		RemoveSelectors: []string{".job-apply", ".social-share"},
	},
	{
		MatchSuffix:     "linkedin.com",
		Selectors:       []string{".show-more-less-html__markup", ".description__text", ".jobs-description__content"},
		WaitSelector:    ".show-more-less-html__markup",
		RemoveSelectors: []string{".show-more-less-html__button", ".top-card-layout", ".sign-up-modal", ".contextual-sign-in-modal"},
	},
	{
		MatchSuffix:     "indeed.com",
		Selectors:       []string{"#jobDescriptionText", ".jobsearch-jobDescriptionText", `[class*="jobsearch-JobComponent-description"]`},
		WaitSelector:    "#jobDescriptionText",
		RemoveSelectors: []string{".jobsearch-IndeedApplyButton", `[class*="jobsearch-JobInfoHeader"]`, "#jobsearch-ViewJobButtons-container"},
	},
	{
		MatchSuffix:     "glassdoor.",
		Selectors:       []string{`[class*="JobDetails_jobDescription"]`, ".jobDescriptionContent", "#JobDescriptionContainer"},
		WaitSelector:    `[class*="JobDetails_jobDescription"]`,
		RemoveSelectors: []string{`[class*="JobDetails_showMore"]`, `[class*="SalaryEstimate"]`},
	},
	{
		MatchSuffix:     "icims.com",
		Selectors:       []string{".iCIMS_JobContent", ".iCIMS_InfoMsg_Job", "#jobDescription"},
		RemoveSelectors: []string{".iCIMS_JobOptions", ".iCIMS_Navigation"},
	},
	{
		MatchSuffix:     "jobvite.com",
		Selectors:       []string{".jv-job-detail-description", ".jv-wrapper"},
		RemoveSelectors: []string{".jv-job-detail-top-actions", ".jv-job-detail-bottom-actions"},
	},
	{
		MatchSuffix:     "bamboohr.com",
		Selectors:       []string{".BambooRichText", `[class*="jobDescription"]`, "main"},
		WaitSelector:    ".BambooRichText",
		RemoveSelectors: []string{`[class*="ApplyButton"]`},
	},
	{
		MatchSuffix:     "workable.com",
		Selectors:       []string{`[data-ui="job-description"]`, `[data-ui="job-requirements"]`, "main"},
		WaitSelector:    `[data-ui="job-description"]`,
		RemoveSelectors: []string{`[data-ui="apply-button"]`, `[data-ui="overview"]`},
	},
	{
		MatchSuffix:     "ziprecruiter.com",
		Selectors:       []string{".job_description", `[class*="jobDescriptionSection"]`, ".job_content"},
		RemoveSelectors: []string{".job_apply", ".hiring_company"},
	},
	{
		MatchSuffix:     "monster.com",
		Selectors:       []string{"#JobDescription", `[class*="descriptionstyles"]`, `[data-testid="svx-description-container-inner"]`},
		WaitSelector:    "#JobDescription",
		RemoveSelectors: []string{`[class*="apply-button"]`},
	},
	{
		MatchSuffix:     "wellfound.com",
		Selectors:       []string{`[class*="styles_description"]`, `[data-test="JobDescription"]`, "main"},
		WaitSelector:    `[data-test="JobDescription"]`,
		RemoveSelectors: []string{`[class*="styles_applyButton"]`},
	},
}
