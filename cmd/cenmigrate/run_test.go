package main

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/enerdata/cenmigrate/internal/pipeline"
	"github.com/enerdata/cenmigrate/internal/progress"
)

func TestSummarize(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name      string
		summaries []pipeline.Summary
		want      int
	}{
		{
			name: "all clean",
			summaries: []pipeline.Summary{
				{Table: "a", Status: "completed", Counters: progress.Snapshot{Inserted: 10}},
				{Table: "b", Status: "completed", Counters: progress.Snapshot{Inserted: 3, Rejected: 2}},
			},
			want: 0,
		},
		{
			name: "lost records below threshold still complete",
			summaries: []pipeline.Summary{
				{Table: "a", Status: "completed", Counters: progress.Snapshot{Inserted: 97, FailedPermanent: 3}},
			},
			want: 0,
		},
		{
			name: "aborted run fails",
			summaries: []pipeline.Summary{
				{Table: "a", Status: "aborted", Err: &pipeline.AbortError{Failed: 20, Read: 100, Threshold: 0.10}},
			},
			want: 1,
		},
		{
			name: "source failure fails",
			summaries: []pipeline.Summary{
				{Table: "a", Status: "failed", Err: errors.New("read header: unexpected EOF")},
			},
			want: 1,
		},
		{
			name: "mixed outcomes count only fatal ones",
			summaries: []pipeline.Summary{
				{Table: "a", Status: "completed"},
				{Table: "b", Status: "completed", Counters: progress.Snapshot{FailedPermanent: 1}},
				{Table: "c", Status: "failed", Err: errors.New("no such file")},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarize(logger, tt.summaries); got != tt.want {
				t.Errorf("summarize() = %d, want %d", got, tt.want)
			}
		})
	}
}
