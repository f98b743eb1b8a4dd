package search

// Filters describes one job search. Zero values mean "don't filter on this".
type Filters struct {
	Keywords        string   `json:"keywords,omitempty"`
	Location        string   `json:"location,omitempty"`
	DatePosted      string   `json:"datePosted,omitempty"` // any-time|past-24-hours|past-week|past-month
	ExperienceLevel []string `json:"experienceLevel,omitempty"`
	JobType         []string `json:"jobType,omitempty"`
	Remote          []string `json:"remote,omitempty"` // on-site|remote|hybrid
}

// Platform filter codes. LinkedIn encodes each facet as a short code in the
// jobs search URL; unknown values are simply skipped.
var (
	datePostedCodes = map[string]string{
		"past-24-hours": "r86400",
		"past-week":     "r604800",
		"past-month":    "r2592000",
	}

	experienceCodes = map[string]string{
		"internship":  "1",
		"entry-level": "2",
		"associate":   "3",
		"mid-senior":  "4",
		"director":    "5",
		"executive":   "6",
	}

	jobTypeCodes = map[string]string{
		"full-time":  "F",
		"part-time":  "P",
		"contract":   "C",
		"temporary":  "T",
		"internship": "I",
		"volunteer":  "V",
		"other":      "O",
	}

	remoteCodes = map[string]string{
		"on-site": "1",
		"remote":  "2",
		"hybrid":  "3",
	}
)
