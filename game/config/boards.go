package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var (
	ErrBoardsNotFound = errors.New("board table not found")
	ErrInvalidBoards  = errors.New("invalid board table")
)

// BoardEntry is one board in the table file.
type BoardEntry struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// BoardTable is the on-disk shape of the known-board table.
type BoardTable struct {
	Boards []BoardEntry `json:"boards"`
}

// DefaultBoards returns the built-in table for the four workshop boards.
func DefaultBoards() map[string]string {
	return map[string]string{
		"9072791": "green",
		"9132300": "red",
		"9073806": "yellow",
		"9132077": "blue",
	}
}

// LoadBoards reads a board table from path. An empty path yields the
// built-in table.
func LoadBoards(path string) (map[string]string, error) {
	if path == "" {
		return DefaultBoards(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBoardsNotFound, path)
		}
		return nil, fmt.Errorf("failed to read board table: %w", err)
	}

	var table BoardTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse board table: %w", err)
	}

	if err := ValidateBoards(&table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoards, err)
	}

	boards := make(map[string]string, len(table.Boards))
	for _, b := range table.Boards {
		boards[b.ID] = b.Color
	}
	return boards, nil
}

// SaveBoards writes table to path as indented JSON, sorted by id.
func SaveBoards(path string, boards map[string]string) error {
	table := TableFromMap(boards)
	if err := ValidateBoards(table); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoards, err)
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal board table: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write board table: %w", err)
	}
	return nil
}

// TableFromMap converts an id -> color map into a BoardTable sorted by id.
func TableFromMap(boards map[string]string) *BoardTable {
	table := &BoardTable{Boards: make([]BoardEntry, 0, len(boards))}
	for id, color := range boards {
		table.Boards = append(table.Boards, BoardEntry{ID: id, Color: color})
	}
	sort.Slice(table.Boards, func(i, j int) bool { return table.Boards[i].ID < table.Boards[j].ID })
	return table
}

// ValidateBoards checks that the table is non-empty, that every entry has an
// id and a color, and that ids are unique.
func ValidateBoards(table *BoardTable) error {
	if table == nil || len(table.Boards) == 0 {
		return errors.New("at least one board is required")
	}

	var problems []string
	seen := make(map[string]bool, len(table.Boards))
	for i, b := range table.Boards {
		id := strings.TrimSpace(b.ID)
		switch {
		case id == "":
			problems = append(problems, fmt.Sprintf("board %d: missing id", i))
		case seen[id]:
			problems = append(problems, fmt.Sprintf("board %d: duplicate id %s", i, id))
		}
		if strings.TrimSpace(b.Color) == "" {
			problems = append(problems, fmt.Sprintf("board %d: missing color", i))
		}
		seen[id] = true
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
