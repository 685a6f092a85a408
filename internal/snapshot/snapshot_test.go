package snapshot

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/model"
)

func testDetail() *model.StudentDetail {
	date := "2024-05-01"
	return &model.StudentDetail{
		Info: model.StudentInfo{
			Name: "Ahmad", NIM: "12050001", Email: "a@s.id",
			Cohort: "2020", Semester: 8,
			Advisor: model.Advisor{NIP: "1987", Name: "Dr. Fulan", Email: "fulan@kampus.ac.id"},
		},
		Submission: model.SubmissionSheet{
			Log: []json.RawMessage{json.RawMessage(`{"aktivitas":"setoran"}`)},
			Summary: model.SubmissionProgress{
				Required: 37, Completed: 1, Pending: 36, Percent: 2.7,
				LastSubmissionDate: &date, LastSubmission: "1 hari yang lalu",
			},
			Components: []model.SubmissionComponent{
				{ID: "c1", Name: "An-Naba", Label: "KP", Completed: true,
					Evidence: &model.SubmissionEvidence{
						ID: "ev-1", SubmittedAt: date, ValidatedAt: date,
						ValidatedBy: model.Advisor{NIP: "1987", Name: "Dr. Fulan"},
					}},
				{ID: "c2", Name: "An-Nazi'at", Label: "KP", Completed: false},
			},
		},
	}
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "snapshot.json"), zerolog.Nop())
}

func TestRoundTrip(t *testing.T) {
	c := newTestCache(t)
	want := testDetail()

	if err := c.Save("12050001", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := c.Load("12050001")
	if !ok {
		t.Fatal("snapshot absent after save")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestLoadEmptyCache(t *testing.T) {
	c := newTestCache(t)
	if _, ok := c.Load("12050001"); ok {
		t.Fatal("expected absent snapshot on fresh cache")
	}
}

func TestSingleSlotLastWriteWins(t *testing.T) {
	c := newTestCache(t)

	first := testDetail()
	if err := c.Save("12050001", first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := testDetail()
	second.Info.NIM = "12050002"
	second.Info.Name = "Budi"
	if err := c.Save("12050002", second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	if got, ok := c.Load("12050002"); !ok || got.Info.Name != "Budi" {
		t.Fatalf("latest snapshot not served: %+v, %v", got, ok)
	}
	// The overwritten student's snapshot is gone; the slot must not serve
	// another student's data in its place.
	if _, ok := c.Load("12050001"); ok {
		t.Fatal("slot served a stale cross-student snapshot")
	}
}
