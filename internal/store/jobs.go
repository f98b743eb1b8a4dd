package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"jobscout-engine/internal/domain"
)

// InsertJobIfNew persists one finished record. Records are deduped by source
// id; re-running a search refreshes enrichment fields on the existing row.
func InsertJobIfNew(ctx context.Context, db *sql.DB, rec domain.JobRecord) (bool, error) {
	if rec.Link == "" {
		return false, errors.New("missing url")
	}
	sourceID := rec.JobID
	if sourceID == "" {
		sourceID = "url:" + strings.TrimSpace(rec.Link)
	}

	res, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs(
  source_id, title, company, company_link, location, url, apply_url,
  posted_at, description, company_website, company_description,
  company_address, company_employee_count, company_industries, fetched_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		sourceID,
		rec.Title,
		rec.OrgName,
		rec.OrgRef,
		rec.Location,
		rec.Link,
		rec.ApplyLink,
		rec.PostedAt,
		rec.Summary,
		rec.OrgWebsite,
		rec.OrgDescription,
		rec.OrgAddress,
		rec.OrgEmployeeCount,
		rec.OrgIndustries,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 0 && rec.OrgWebsite != "" {
		// row existed; backfill enrichment if an earlier run missed it
		_, _ = db.ExecContext(ctx, `
UPDATE jobs
SET company_website = ?, company_description = ?, company_address = ?,
    company_employee_count = ?, company_industries = ?
WHERE source_id = ?
  AND (company_website = '' OR company_website IS NULL);`,
			rec.OrgWebsite, rec.OrgDescription, rec.OrgAddress,
			rec.OrgEmployeeCount, rec.OrgIndustries, sourceID,
		)
	}
	return n > 0, nil
}

// SaveResults stores a whole search result set, best-effort per record.
func SaveResults(ctx context.Context, db *sql.DB, recs []domain.JobRecord) (added int) {
	for _, rec := range recs {
		ok, err := InsertJobIfNew(ctx, db, rec)
		if err != nil {
			continue
		}
		if ok {
			added++
		}
	}
	return added
}

// ListJobs returns persisted records, newest fetch first.
func ListJobs(ctx context.Context, db *sql.DB, limit int) ([]domain.JobRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
SELECT source_id, title, company, company_link, location, url, apply_url,
       posted_at, description, company_website, company_description,
       company_address, company_employee_count, company_industries
FROM jobs
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		var r domain.JobRecord
		if err := rows.Scan(
			&r.JobID, &r.Title, &r.OrgName, &r.OrgRef, &r.Location, &r.Link,
			&r.ApplyLink, &r.PostedAt, &r.Summary, &r.OrgWebsite,
			&r.OrgDescription, &r.OrgAddress, &r.OrgEmployeeCount,
			&r.OrgIndustries,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
