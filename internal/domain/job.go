package domain

// JobRecord is one extracted listing. Enrichment fields start empty and are
// filled in by the merge step after the org queue drains.
type JobRecord struct {
	JobID     string `json:"jobId"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	ApplyLink string `json:"applyLink"`
	OrgName   string `json:"companyName"`
	OrgRef    string `json:"companyLink,omitempty"`
	Location  string `json:"location"`
	PostedAt  string `json:"postedAt"` // free text, e.g. "5 days ago"
	Summary   string `json:"description"`

	OrgWebsite       string `json:"companyWebsite"`
	OrgDescription   string `json:"companyDescription"`
	OrgAddress       string `json:"companyAddress"`
	OrgEmployeeCount string `json:"companyEmployeeCount"`
	OrgIndustries    string `json:"companyIndustries"`
}

// OrgDetails is the enrichment payload cached per org ref. A failed fetch
// still produces a zero-valued entry so the ref is never retried.
type OrgDetails struct {
	Website       string `json:"website"`
	Description   string `json:"description"`
	Address       string `json:"address"`
	EmployeeCount string `json:"employeeCount"`
	Industries    string `json:"industries"`
}
