package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeBoardFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boards.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write board file: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, msg := range result.Errors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestValidateBoardFile_Valid(t *testing.T) {
	path := writeBoardFile(t, `{
		"boards": [
			{"id": "9132300", "color": "red"},
			{"id": "9072791", "color": "green"},
			{"id": "9073806", "color": "yellow"},
			{"id": "9132077", "color": "blue"}
		]
	}`)

	result := validateBoardFile(path)
	if !result.Valid {
		t.Fatalf("Expected valid board table, got errors: %v", result.Errors)
	}
	if result.File != "boards.json" {
		t.Errorf("Expected base file name, got %s", result.File)
	}
	if !hasMessage(result, "✓ Boards: 4") {
		t.Errorf("Expected board count, got %v", result.Errors)
	}
	if result.Errors[1] != "✓ 9072791: green" {
		t.Errorf("Expected boards listed by id, got %v", result.Errors)
	}
}

func TestValidateBoardFile_Notes(t *testing.T) {
	path := writeBoardFile(t, `{"boards": [{"id": "1", "color": "red"}]}`)

	result := validateBoardFile(path)
	if !result.Valid {
		t.Fatalf("Expected valid board table, got errors: %v", result.Errors)
	}
	if !hasMessage(result, "single board") {
		t.Errorf("Expected single board note, got %v", result.Errors)
	}

	path = writeBoardFile(t, `{"boards": [{"id": "1", "color": "red"}, {"id": "2", "color": "red"}]}`)
	result = validateBoardFile(path)
	if !hasMessage(result, "2 boards share the color red") {
		t.Errorf("Expected shared color note, got %v", result.Errors)
	}
}

func TestValidateBoardFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "invalid JSON",
			content: `{"boards": [`,
			want:    "Invalid JSON",
		},
		{
			name:    "empty table",
			content: `{"boards": []}`,
			want:    "at least one board is required",
		},
		{
			name:    "missing id",
			content: `{"boards": [{"color": "red"}]}`,
			want:    "board 0: missing id",
		},
		{
			name:    "missing color",
			content: `{"boards": [{"id": "9072791"}]}`,
			want:    "board 0: missing color",
		},
		{
			name:    "duplicate id",
			content: `{"boards": [{"id": "1", "color": "red"}, {"id": "1", "color": "blue"}]}`,
			want:    "duplicate id 1",
		},
		{
			name:    "non-numeric id",
			content: `{"boards": [{"id": "left-pad", "color": "red"}]}`,
			want:    "is not a chip id",
		},
		{
			name:    "unknown color",
			content: `{"boards": [{"id": "1", "color": "purple"}]}`,
			want:    "has no pad in the UI",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateBoardFile(writeBoardFile(t, tt.content))
			if result.Valid {
				t.Fatal("Expected invalid board table")
			}
			if !hasMessage(result, tt.want) {
				t.Errorf("Expected %q in errors, got %v", tt.want, result.Errors)
			}
			if hasMessage(result, "✓") {
				t.Errorf("Expected no informational messages, got %v", result.Errors)
			}
		})
	}
}

func TestValidateBoardFile_MissingFile(t *testing.T) {
	result := validateBoardFile("/non/existent/boards.json")
	if result.Valid {
		t.Error("Expected missing file to be invalid")
	}
	if !hasMessage(result, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}
