// Command validate provides a small CLI that validates board table JSON
// files. It takes file paths as arguments, or scans ../boards when given
// none. It checks:
//   - JSON structure and required fields
//   - Unique, non-empty ids and colors
//   - Chip ids are the decimal numbers the board firmware reports
//   - Colors are ones the browser UI can render
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/wricardo/simonsays/game/config"
)

// uiColors are the colors the browser UI has a pad for.
var uiColors = map[string]bool{
	"green":  true,
	"red":    true,
	"yellow": true,
	"blue":   true,
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateBoardFile loads and validates a single board table file.
func validateBoardFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var table config.BoardTable
	if err := json.Unmarshal(data, &table); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := config.ValidateBoards(&table); err != nil {
		result.Valid = false
		for _, problem := range strings.Split(err.Error(), "; ") {
			result.Errors = append(result.Errors, problem)
		}
	}

	colors := map[string]int{}
	for i, b := range table.Boards {
		if b.ID != "" {
			if _, err := strconv.ParseUint(b.ID, 10, 32); err != nil {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("board %d: id %q is not a chip id", i, b.ID))
			}
		}
		if b.Color != "" && !uiColors[b.Color] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("board %d: color %q has no pad in the UI", i, b.Color))
		}
		colors[b.Color]++
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Boards: %d", len(table.Boards)))
		for _, b := range sortedEntries(table.Boards) {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ %s: %s", b.ID, b.Color))
		}
		for color, n := range colors {
			if n > 1 {
				result.Errors = append(result.Errors, fmt.Sprintf("✓ Note: %d boards share the color %s", n, color))
			}
		}
		if len(table.Boards) == 1 {
			result.Errors = append(result.Errors, "✓ Note: a single board makes every sequence the same board")
		}
	}

	return result
}

func sortedEntries(entries []config.BoardEntry) []config.BoardEntry {
	sorted := append([]config.BoardEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}

// main validates each board table file, printing a concise report and
// exiting with non-zero status if any are invalid.
func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		var err error
		files, err = filepath.Glob(filepath.Join("../boards", "*.json"))
		if err != nil {
			fmt.Printf("Error finding board files: %v\n", err)
			os.Exit(1)
		}
	}
	if len(files) == 0 {
		fmt.Println("No board files to validate")
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateBoardFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All board tables are valid!")
	} else {
		fmt.Println("❌ Some board tables have errors")
		os.Exit(1)
	}
}
