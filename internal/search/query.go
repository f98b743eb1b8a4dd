package search

import (
	"net/url"
	"strings"
)

// BuildQuery maps filters to the platform's query string. Pure and
// deterministic: same filters, same string, in a fixed parameter order.
// "any-time" is the platform default and contributes nothing.
func BuildQuery(f Filters) string {
	var parts []string
	add := func(key, val string) {
		if val == "" {
			return
		}
		parts = append(parts, key+"="+url.QueryEscape(val))
	}

	add("keywords", strings.TrimSpace(f.Keywords))
	add("location", strings.TrimSpace(f.Location))
	add("f_TPR", datePostedCodes[f.DatePosted])
	add("f_E", joinCodes(f.ExperienceLevel, experienceCodes))
	add("f_JT", joinCodes(f.JobType, jobTypeCodes))
	add("f_WT", joinCodes(f.Remote, remoteCodes))

	return strings.Join(parts, "&")
}

// joinCodes maps each value through the code table and joins with commas,
// skipping anything the table doesn't know.
func joinCodes(vals []string, table map[string]string) string {
	var codes []string
	for _, v := range vals {
		if c, ok := table[strings.TrimSpace(v)]; ok {
			codes = append(codes, c)
		}
	}
	return strings.Join(codes, ",")
}
