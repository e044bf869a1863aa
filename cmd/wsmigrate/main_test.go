package main

import (
	"errors"
	"strings"
	"testing"

	"wsmigrate/internal/config"
	"wsmigrate/internal/migrate"
	"wsmigrate/internal/rewrite"
)

func TestReport(t *testing.T) {
	job := &migrate.Job{Source: "/src/proj", Dest: "/dst/proj2"}

	res := &migrate.Result{
		Job:   job,
		State: migrate.StateDone,
		Files: migrate.FilesCopied,
		Editors: []migrate.EditorResult{
			{Editor: config.EditorVSCode, Outcome: migrate.OutcomeMigrated, Counts: rewrite.Counts{TextFiles: 2, DBRows: 5}},
			{Editor: config.EditorCursor, Outcome: migrate.OutcomeSkipped},
		},
	}

	r := report(res)
	if r.Workspace != "proj" {
		t.Errorf("Workspace = %q", r.Workspace)
	}
	if r.Status != "done" {
		t.Errorf("Status = %q", r.Status)
	}
	if r.Files != "copied" {
		t.Errorf("Files = %q", r.Files)
	}
	if !strings.Contains(r.VSCode, "migrated") || !strings.Contains(r.VSCode, "5 rows") {
		t.Errorf("VSCode = %q", r.VSCode)
	}
	if r.Cursor != "no state" {
		t.Errorf("Cursor = %q", r.Cursor)
	}
}

func TestReportFailure(t *testing.T) {
	res := &migrate.Result{
		Job:   &migrate.Job{Source: "/src/proj"},
		State: migrate.StateFailed,
		Files: migrate.FilesFailed,
		Err:   errors.New("copy failed"),
		Editors: []migrate.EditorResult{
			{Editor: config.EditorVSCode, Outcome: migrate.OutcomeFailed, Err: errors.New("state database is locked")},
		},
	}

	r := report(res)
	if r.Status != "failed" {
		t.Errorf("Status = %q", r.Status)
	}
	if r.Details != "copy failed" {
		t.Errorf("Details = %q", r.Details)
	}
	if !strings.Contains(r.VSCode, "locked") {
		t.Errorf("VSCode = %q", r.VSCode)
	}
}
