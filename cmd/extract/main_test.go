package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/extract"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "defaults",
			args: []string{"a.pdf", "B.PDF"},
			want: options{outDir: "processed_data", workers: 4, files: []string{"a.pdf", "B.PDF"}},
		},
		{
			name: "flags",
			args: []string{"-out", "csv", "-combine", "all.csv", "-workers", "2", "-quiet", "a.pdf"},
			want: options{outDir: "csv", combine: "all.csv", workers: 2, quiet: true, files: []string{"a.pdf"}},
		},
		{name: "no files", args: []string{"-out", "csv"}, wantErr: true},
		{name: "not pdf", args: []string{"menu.csv"}, wantErr: true},
		{name: "zero workers", args: []string{"-workers", "0", "a.pdf"}, wantErr: true},
		{name: "unknown flag", args: []string{"-x", "a.pdf"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args, io.Discard)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(options{})); diff != "" {
				t.Errorf("parseArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseArgs_NoInput(t *testing.T) {
	_, err := parseArgs(nil, io.Discard)
	if !errors.Is(err, errNoInput) {
		t.Errorf("error = %v, want errNoInput", err)
	}
}

func TestCSVName(t *testing.T) {
	got := csvName("out", filepath.Join("reports", "Maret 2025.pdf"))
	if want := filepath.Join("out", "Maret 2025.csv"); got != want {
		t.Errorf("csvName() = %q, want %q", got, want)
	}
}

func TestWriteSummary(t *testing.T) {
	results := []outcome{
		{
			path:   "reports/march.pdf",
			output: "out/march.csv",
			res: &extract.Result{
				Pages:  3,
				Report: extract.ValidationReport{Records: 42, ExtractedTotal: 2_800_000_000, Accuracy: 97.65},
			},
		},
		{path: "reports/broken.pdf", err: errors.New("malformed PDF")},
	}

	var buf bytes.Buffer
	writeSummary(&buf, results)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("summary has %d lines, want 3:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"march.pdf", "42", "2800000000", "97.65%", "out/march.csv"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("summary row %q missing %q", lines[1], want)
		}
	}
	if !strings.Contains(lines[2], "error: malformed PDF") {
		t.Errorf("failed row = %q", lines[2])
	}
}

func TestRun_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pdf")

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-quiet", "-out", dir, missing}, &stdout, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "1 of 1 files failed") {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "missing.pdf") || !strings.Contains(stdout.String(), "error:") {
		t.Errorf("summary should report the failure:\n%s", stdout.String())
	}
}
