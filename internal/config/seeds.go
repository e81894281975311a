package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadSeedURLs reads the "URL" column of a CSV file, keeping row order.
func LoadSeedURLs(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("seed file is empty")
	}

	urlIdx := -1
	for i, col := range records[0] {
		if strings.EqualFold(strings.TrimSpace(col), "url") {
			urlIdx = i
			break
		}
	}
	if urlIdx == -1 {
		return nil, fmt.Errorf("failed to find the URL column in seed file")
	}

	var urls []string
	for _, row := range records[1:] {
		if len(row) > urlIdx {
			if u := strings.TrimSpace(row[urlIdx]); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}
