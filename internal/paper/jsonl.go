package paper

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxLineCapacity bounds the JSONL scanner buffer (1MB per line).
const maxLineCapacity = 1024 * 1024

// ReadAll reads papers from a JSONL file, one record per line. Records
// missing a key get one derived from title and year. The file is opened
// read-only; consolidation never writes back to its input.
func ReadAll(path string) ([]*Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var papers []*Paper
	scanner := bufio.NewScanner(f)
	buf := make([]byte, maxLineCapacity)
	scanner.Buffer(buf, maxLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if p.Key == "" {
			p.Key = DeriveKey(p.Title, p.Year)
		}
		if p.Identifiers == nil {
			p.Identifiers = make(map[IDKind]string)
		}
		papers = append(papers, &p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return papers, nil
}

// WriteAll writes papers to a JSONL file atomically via temp file + rename,
// so readers never observe a partially written artifact.
func WriteAll(path string, papers []*Paper) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	for i, p := range papers {
		data, err := json.Marshal(p)
		if err != nil {
			tmpFile.Close()
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return fmt.Errorf("writing record %d: %w", i, err)
		}
		if _, err := tmpFile.WriteString("\n"); err != nil {
			tmpFile.Close()
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
