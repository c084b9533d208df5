// Package ocrdata loads labeled handwriting datasets.
//
// A dataset split is a CSV file with a FILENAME column and
// an IDENTITY column, plus a directory containing the
// referenced images.
package ocrdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/essentials"
	"golang.org/x/text/unicode/norm"
)

// These are the column names looked up in split files.
// Matching is case-insensitive.
const (
	FilenameColumn = "FILENAME"
	IdentityColumn = "IDENTITY"
)

// A Record is one row of a split file.
type Record struct {
	Filename string
	Identity string
}

// ReadRecords reads records from CSV data.
//
// Identities are NFC-normalized so that visually identical
// labels map to the same characters.
// Rows with an empty identity are dropped.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("read records: missing header")
	} else if err != nil {
		return nil, essentials.AddCtx("read records", err)
	}
	fileIdx, idIdx := -1, -1
	for i, name := range header {
		switch strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case FilenameColumn:
			fileIdx = i
		case IdentityColumn:
			idIdx = i
		}
	}
	if fileIdx < 0 || idIdx < 0 {
		return nil, fmt.Errorf("read records: header needs %s and %s columns (got %v)",
			FilenameColumn, IdentityColumn, header)
	}

	var res []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, essentials.AddCtx("read records", err)
		}
		if fileIdx >= len(row) || idIdx >= len(row) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("read records: line %d: missing columns", line)
		}
		identity := norm.NFC.String(strings.TrimSpace(row[idIdx]))
		if identity == "" {
			continue
		}
		res = append(res, Record{
			Filename: strings.TrimSpace(row[fileIdx]),
			Identity: identity,
		})
	}
	return res, nil
}

// LoadSplit reads a split file and turns its records into
// samples whose image paths are rooted at the split's
// image directory.
//
// If the split's Limit is positive, at most Limit records
// are used.
func LoadSplit(s anyocr.Split) (SampleList, error) {
	f, err := os.Open(s.CSV)
	if err != nil {
		return nil, essentials.AddCtx("load split", err)
	}
	defer f.Close()
	records, err := ReadRecords(f)
	if err != nil {
		return nil, essentials.AddCtx("load split "+s.CSV, err)
	}
	if s.Limit > 0 && len(records) > s.Limit {
		records = records[:s.Limit]
	}
	res := make(SampleList, len(records))
	for i, r := range records {
		res[i] = &Sample{
			ImagePath: filepath.Join(s.ImageDir, r.Filename),
			Label:     r.Identity,
		}
	}
	return res, nil
}
