package etsy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyFile is returned when the input has no header or no data rows.
var ErrEmptyFile = errors.New("CSV-Datei ist leer oder enthält keine Daten")

// headerKeywords identify a repeated header row when several export
// files are concatenated. Lowercased substrings, any locale.
var headerKeywords = []string{
	"order id", "bestellnummer", "sale id",
	"buyer", "käufer",
	"item name", "artikelname",
	"buchungstag", "verwendungszweck", "betrag",
	"datum", "date",
}

// ReadRows parses one CSV export into raw rows. The first line is the
// header; every data cell is stored under its column name. Structural
// CSV errors abort the whole batch.
func ReadRows(content string) ([]*RawRow, error) {
	const op = "ReadRows"

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1 // exports pad or truncate trailing columns

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: CSV konnte nicht gelesen werden: %w", op, err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyFile
	}

	header := records[0]
	var rows []*RawRow
	for _, record := range records[1:] {
		row := NewRawRow()
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			row.Set(header[i], cell)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// Concat joins several CSV export files into one. The first file keeps
// its header; subsequent files have their own header line stripped when
// its first line looks like a header (contains a known header keyword).
// Files must already be fully materialized as strings.
func Concat(files []string) string {
	var b strings.Builder
	for i, file := range files {
		content := strings.TrimRight(file, "\r\n")
		if content == "" {
			continue
		}
		if i > 0 {
			content = stripHeaderLine(content)
			if content == "" {
				continue
			}
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(content)
	}
	return b.String()
}

// ReadFiles parses the concatenation of several export files.
func ReadFiles(files []string) ([]*RawRow, error) {
	return ReadRows(Concat(files))
}

func stripHeaderLine(content string) string {
	firstLine := content
	rest := ""
	if idx := strings.IndexAny(content, "\r\n"); idx >= 0 {
		firstLine = content[:idx]
		rest = strings.TrimLeft(content[idx:], "\r\n")
	}

	lower := strings.ToLower(firstLine)
	for _, keyword := range headerKeywords {
		if strings.Contains(lower, keyword) {
			return rest
		}
	}
	return content
}
