package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func filesWith(statuses ...FileStatus) []FileReviewRecord {
	files := make([]FileReviewRecord, len(statuses))
	for i, s := range statuses {
		files[i].Status = s
	}
	return files
}

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name  string
		files []FileReviewRecord
		want  SubmissionStatus
	}{
		{"no files", nil, SubmissionPending},
		{"all pending", filesWith(FilePending, FilePending), SubmissionPending},
		{"all approved", filesWith(FileApproved, FileApproved, FileApproved), SubmissionApproved},
		{"all rejected", filesWith(FileRejected, FileRejected), SubmissionRejected},
		{"approved and rejected", filesWith(FileApproved, FileRejected), SubmissionPartialApproved},
		{"approved and pending", filesWith(FileApproved, FilePending), SubmissionPartialApproved},
		{"rejected and pending", filesWith(FileRejected, FilePending), SubmissionPartialApproved},
		{"single approved", filesWith(FileApproved), SubmissionApproved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeStatus(tc.files))
		})
	}
}

func TestFileReviewRecord_Reviewed(t *testing.T) {
	f := FileReviewRecord{Status: FilePending}
	assert.False(t, f.Reviewed())

	f.Status = FileApproved
	assert.True(t, f.Reviewed())

	f.Status = FileRejected
	assert.True(t, f.Reviewed())
}

func TestReminder_Due(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)

	r := Reminder{Hour: 9, Minute: 0, Enabled: true}
	assert.True(t, r.Due(now), "past scheduled time, never fired")

	r.Enabled = false
	assert.False(t, r.Due(now), "disabled reminders never fire")

	r.Enabled = true
	fired := time.Date(2026, 8, 28, 9, 5, 0, 0, time.UTC)
	r.LastFired = &fired
	assert.False(t, r.Due(now), "already fired after today's scheduled time")

	yesterday := fired.AddDate(0, 0, -1)
	r.LastFired = &yesterday
	assert.True(t, r.Due(now), "fired yesterday, due again today")

	r.LastFired = nil
	r.Hour, r.Minute = 10, 0
	assert.False(t, r.Due(now), "scheduled time not reached yet")
}
