/*
Package tabular reads uploaded performance spreadsheets into prize tables.

PURPOSE:
  Administrators upload CSV or TSV exports. Files come from different
  systems: some are UTF-8 (with or without a BOM), some are CP949, some use
  tabs. Read normalizes all of that and hands back a *prize.Table whose cells
  are the raw strings of the file; the engine does its own number parsing.

DETECTION:
  - Encoding: UTF-8 if the bytes are valid UTF-8, otherwise EUC-KR/CP949
  - Delimiter: tab if the header line has more tabs than commas, else comma
  - Empty cells and "NA"/"NaN" read as nil

LIMITS:
  Excel workbooks (.xlsx/.xls) are rejected; export them as CSV first.
*/
package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/encoding/korean"

	"github.com/meritzGA/meritz-prize/prize"
)

var (
	// ErrUnsupportedFormat is returned for files that are not CSV or TSV.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmpty is returned for files without data rows.
	ErrEmpty = errors.New("file has no data rows")
)

var naValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// ReadFile reads the file at path. The table is named after the file.
func ReadFile(path string) (*prize.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Read parses r as the file called name.
func Read(name string, r io.Reader) (*prize.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls", ".xlsm":
		return nil, fmt.Errorf("%w: %s (save it as CSV)", ErrUnsupportedFormat, name)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	df := dataframe.ReadCSV(bytes.NewReader(text),
		dataframe.WithDelimiter(detectDelimiter(text)),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(naValues),
	)
	if err := df.Error(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}

	t := prize.NewTable(name, cleanNames(df.Names()), toRows(df))
	t.UploadedAt = time.Now()
	return t, nil
}

// decode returns UTF-8 text without a byte order mark.
func decode(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return raw, nil
	}
	return korean.EUCKR.NewDecoder().Bytes(raw)
}

func detectDelimiter(text []byte) rune {
	header := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		header = text[:i]
	}
	if bytes.Count(header, []byte{'\t'}) > bytes.Count(header, []byte{','}) {
		return '\t'
	}
	return ','
}

func cleanNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.TrimSpace(n)
	}
	return out
}

func toRows(df dataframe.DataFrame) []prize.Row {
	names := df.Names()
	clean := cleanNames(names)
	rows := make([]prize.Row, df.Nrow())
	for i := range rows {
		rows[i] = make(prize.Row, len(names))
	}
	for c, name := range names {
		col := df.Col(name)
		for i := range rows {
			e := col.Elem(i)
			if e.IsNA() {
				rows[i][clean[c]] = nil
				continue
			}
			rows[i][clean[c]] = e.String()
		}
	}
	return rows
}
