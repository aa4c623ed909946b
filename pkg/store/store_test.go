package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Sternrassler/cache-inspector/pkg/run"
)

func testRun(id string) *run.Run {
	return &run.Run{
		RunID:  id,
		URL:    "https://example.com/" + id,
		Status: 200,
		Headers: map[string]string{
			"cache-status": `"Netlify Edge"; hit`,
			"server":       "Netlify",
		},
		DurationInMs: 42,
		CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// runStoreTests exercises the Store contract against any backend.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("save and get run", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		want := testRun("aaaa1111")
		want.ReportID = "report-1"
		if err := s.SaveRun(ctx, want); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}

		got, err := s.GetRun(ctx, want.RunID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetRun() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r := testRun("bbbb2222")
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		r.Status = 404
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		got, err := s.GetRun(ctx, r.RunID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if got.Status != 404 {
			t.Errorf("Status = %d, want 404", got.Status)
		}
	})

	t.Run("invalid run rejected", func(t *testing.T) {
		s := newStore(t)
		r := testRun("cccc3333")
		r.URL = "not a url"
		if err := s.SaveRun(context.Background(), r); !errors.Is(err, run.ErrInvalidRun) {
			t.Errorf("SaveRun() error = %v, want ErrInvalidRun", err)
		}
	})

	t.Run("missing run", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetRun(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRun() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("report lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		report := &run.Report{
			ReportID:  "report-lifecycle",
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			RunIDs:    []string{"r1"},
		}
		if err := s.CreateReport(ctx, report); err != nil {
			t.Fatalf("CreateReport() error = %v", err)
		}
		for _, id := range []string{"r2", "r3"} {
			if err := s.AddRunToReport(ctx, report.ReportID, id); err != nil {
				t.Fatalf("AddRunToReport(%s) error = %v", id, err)
			}
		}

		got, err := s.GetReport(ctx, report.ReportID)
		if err != nil {
			t.Fatalf("GetReport() error = %v", err)
		}
		want := &run.Report{
			ReportID:  report.ReportID,
			CreatedAt: report.CreatedAt,
			RunIDs:    []string{"r1", "r2", "r3"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetReport() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty report", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		report := run.NewReport(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
		if err := s.CreateReport(ctx, report); err != nil {
			t.Fatalf("CreateReport() error = %v", err)
		}
		got, err := s.GetReport(ctx, report.ReportID)
		if err != nil {
			t.Fatalf("GetReport() error = %v", err)
		}
		if len(got.RunIDs) != 0 {
			t.Errorf("RunIDs = %v, want empty", got.RunIDs)
		}
	})

	t.Run("missing report", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.GetReport(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetReport() error = %v, want ErrNotFound", err)
		}
		if err := s.AddRunToReport(ctx, "nope", "r1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("AddRunToReport() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
