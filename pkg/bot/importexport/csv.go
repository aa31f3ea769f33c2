package importexport

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/smith3v/tg-word-keeper/pkg/db"
	"golang.org/x/text/cases"
)

// WordEntry is one parsed CSV row.
type WordEntry struct {
	Word       string
	Definition string
	Context    *string
}

// WordAdder stores a word, updating it in place when the headword exists.
type WordAdder interface {
	AddWord(ctx context.Context, userID int64, word, definition string, wordContext *string) (int64, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{"word", "definition", "context"}

const maxDelimiterSampleRecords = 20

func ParseVocabularyCSV(data []byte) ([]WordEntry, int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delimiter := detectCSVDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	var entries []WordEntry
	skipped := 0
	checkedHeader := false

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		if isEmptyCSVRecord(record) {
			skipped++
			continue
		}
		if !checkedHeader {
			checkedHeader = true
			if isHeaderRecord(record) {
				continue
			}
		}
		if len(record) < 2 {
			skipped++
			continue
		}
		word := strings.TrimSpace(record[0])
		definition := strings.TrimSpace(record[1])
		if word == "" || definition == "" {
			skipped++
			continue
		}
		entry := WordEntry{Word: word, Definition: definition}
		if len(record) > 2 {
			if wordContext := strings.TrimSpace(record[2]); wordContext != "" {
				entry.Context = &wordContext
			}
		}
		entries = append(entries, entry)
	}

	return entries, skipped, nil
}

func detectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', '\t', ';'}
	bestDelimiter := candidates[0]
	bestScore := -1

	for _, delimiter := range candidates {
		score, err := scoreDelimiter(data, delimiter, maxDelimiterSampleRecords)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestDelimiter = delimiter
		}
	}

	if bestScore <= 0 {
		return ','
	}
	return bestDelimiter
}

// scoreDelimiter counts how many sampled rows agree on the most common
// field count when split by delimiter.
func scoreDelimiter(data []byte, delimiter rune, maxRecords int) (int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	counts := make(map[int]int)
	recordsSeen := 0

	for recordsSeen < maxRecords {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if isEmptyCSVRecord(record) {
			continue
		}
		recordsSeen++

		if len(record) < 2 {
			continue
		}
		counts[len(record)]++
	}

	best := 0
	for _, score := range counts {
		if score > best {
			best = score
		}
	}
	return best, nil
}

func isEmptyCSVRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isHeaderRecord(record []string) bool {
	if len(record) < 2 {
		return false
	}
	left := strings.ToLower(strings.TrimSpace(record[0]))
	right := strings.ToLower(strings.TrimSpace(record[1]))
	words := map[string]struct{}{
		"word":     {},
		"headword": {},
		"term":     {},
	}
	definitions := map[string]struct{}{
		"definition":  {},
		"explanation": {},
		"meaning":     {},
	}
	_, leftOK := words[left]
	_, rightOK := definitions[right]
	return leftOK && rightOK
}

// ImportWords adds every entry for the user. Entries whose headword is
// already stored replace the stored definition and context.
func ImportWords(ctx context.Context, store WordAdder, userID int64, entries []WordEntry) (int, error) {
	imported := 0
	for _, entry := range entries {
		if _, err := store.AddWord(ctx, userID, entry.Word, entry.Definition, entry.Context); err != nil {
			return imported, fmt.Errorf("import %q: %w", entry.Word, err)
		}
		imported++
	}
	return imported, nil
}

func BuildExportCSV(words []db.Word) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(utf8BOM); err != nil {
		return nil, err
	}

	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true

	if err := writer.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, w := range words {
		wordContext := ""
		if w.Context != nil {
			wordContext = *w.Context
		}
		if err := writer.Write([]string{w.Word, w.Definition, wordContext}); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ExportFilename(now time.Time) string {
	return fmt.Sprintf("vocabulary-%s.csv", now.Format("20060102"))
}

// SortWordsForExport orders words alphabetically, ignoring case.
func SortWordsForExport(words []db.Word) {
	fold := cases.Fold()
	sort.SliceStable(words, func(i, j int) bool {
		left, right := fold.String(words[i].Word), fold.String(words[j].Word)
		if left == right {
			return words[i].ID < words[j].ID
		}
		return left < right
	})
}
