package main

import (
	"net/http"
	"path/filepath"
	"testing"

	"dialer/internal/testsupport"
)

func TestUploadCSV(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "leads.csv")
	testsupport.WriteCSV(t, path, []string{"Corner Cafe", "+15550102"}, []string{"Delta Dental", "+15550103"})

	out, err := env.run(t, "", "upload", path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Upload successful!")
	if got := len(env.backend.Businesses()); got != 2 {
		t.Fatalf("expected 2 businesses on backend, got %d", got)
	}
	if _, ok := env.backend.Upload("leads.csv"); !ok {
		t.Fatal("expected file stored under its base name")
	}
}

func TestUploadRejectsNonCSV(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "notes.txt")
	testsupport.WriteFile(t, path, 16)

	_, err := env.run(t, "", "upload", path)
	if err == nil || err.Error() != "Please upload a CSV file" {
		t.Fatalf("expected format error, got %v", err)
	}
	if env.backend.Called("POST /api/upload-csv") {
		t.Fatal("invalid file must not reach the backend")
	}
}

func TestUploadShowsServerMessage(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Fail("/api/upload-csv", http.StatusBadRequest, "Missing phone column")
	path := filepath.Join(env.baseDir, "leads.csv")
	testsupport.WriteCSV(t, path, []string{"Corner Cafe", "+15550102"})

	_, err := env.run(t, "", "upload", path)
	if err == nil || err.Error() != "Missing phone column" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestUploadMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "", "upload", filepath.Join(env.baseDir, "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if env.backend.Called("POST /api/upload-csv") {
		t.Fatal("missing file must not reach the backend")
	}
}
