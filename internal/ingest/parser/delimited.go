package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const sniffLines = 10

var delimiterCandidates = []rune{';', ',', '\t', '|'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadDelimited reads delimited text, detecting the delimiter from the first lines.
func ReadDelimited(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("parser: read: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("parser: csv: %w", err)
		}
		rows = append(rows, record)
	}
	return Table{Rows: rows}, nil
}

// DetectDelimiter picks the candidate whose per-line count is the most
// consistent over the first non-empty lines. Comma is the default.
func DetectDelimiter(data []byte) rune {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() && len(lines) < sniffLines {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}

	best, bestScore := ',', 0
	for _, c := range delimiterCandidates {
		freq := make(map[int]int)
		for _, line := range lines {
			if n := strings.Count(line, string(c)); n > 0 {
				freq[n]++
			}
		}
		score := 0
		for count, lines := range freq {
			if s := lines*1000 + count; s > score {
				score = s
			}
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
