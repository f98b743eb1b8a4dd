package store

import (
	"context"
	"path/filepath"
	"testing"

	"jobscout-engine/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord() domain.JobRecord {
	return domain.JobRecord{
		JobID:    "4242",
		Title:    "Backend Engineer",
		OrgName:  "Acme",
		OrgRef:   "https://www.linkedin.com/company/acme",
		Location: "Berlin",
		Link:     "https://www.linkedin.com/jobs/view/4242/",
		PostedAt: "2 days ago",
		Summary:  "Build services in Go.",
	}
}

func TestInsertJobIfNewDedupes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	added, err := InsertJobIfNew(ctx, db.Pool, sampleRecord())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !added {
		t.Fatal("first insert must add a row")
	}

	added, err = InsertJobIfNew(ctx, db.Pool, sampleRecord())
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if added {
		t.Fatal("same source id must not add a second row")
	}

	jobs, err := ListJobs(ctx, db.Pool, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d rows, want 1", len(jobs))
	}
}

func TestInsertBackfillsEnrichment(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	bare := sampleRecord()
	if _, err := InsertJobIfNew(ctx, db.Pool, bare); err != nil {
		t.Fatal(err)
	}

	enriched := sampleRecord()
	enriched.OrgWebsite = "https://acme.test"
	enriched.OrgIndustries = "Aerospace"
	if _, err := InsertJobIfNew(ctx, db.Pool, enriched); err != nil {
		t.Fatal(err)
	}

	jobs, err := ListJobs(ctx, db.Pool, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d rows, want 1", len(jobs))
	}
	if jobs[0].OrgWebsite != "https://acme.test" || jobs[0].OrgIndustries != "Aerospace" {
		t.Fatalf("enrichment not backfilled: %#v", jobs[0])
	}
}

func TestInsertWithoutJobIDFallsBackToURL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := sampleRecord()
	rec.JobID = ""
	if added, err := InsertJobIfNew(ctx, db.Pool, rec); err != nil || !added {
		t.Fatalf("insert: added=%v err=%v", added, err)
	}
	// Same link, still no id: dedupes on the url key.
	if added, err := InsertJobIfNew(ctx, db.Pool, rec); err != nil || added {
		t.Fatalf("dup insert: added=%v err=%v", added, err)
	}
}

func TestInsertRequiresLink(t *testing.T) {
	db := openTestDB(t)
	rec := sampleRecord()
	rec.Link = ""
	if _, err := InsertJobIfNew(context.Background(), db.Pool, rec); err == nil {
		t.Fatal("record without a url must be rejected")
	}
}

func TestListJobsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		rec := sampleRecord()
		rec.JobID = id
		rec.Link = "https://www.linkedin.com/jobs/view/" + id + "/"
		if _, err := InsertJobIfNew(ctx, db.Pool, rec); err != nil {
			t.Fatal(err)
		}
	}

	jobs, err := ListJobs(ctx, db.Pool, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("limit not applied, got %d rows", len(jobs))
	}
	if jobs[0].JobID != "3" || jobs[1].JobID != "2" {
		t.Fatalf("wrong order: %q then %q", jobs[0].JobID, jobs[1].JobID)
	}
}

func TestSaveResultsIsBestEffort(t *testing.T) {
	db := openTestDB(t)
	recs := []domain.JobRecord{
		sampleRecord(),
		{Title: "broken, no url"},
		sampleRecord(), // dup of the first
	}
	if added := SaveResults(context.Background(), db.Pool, recs); added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
}
