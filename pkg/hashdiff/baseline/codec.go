package baseline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// Column layout shared by the baseline and the report files.
const (
	// Delimiter separates fields in every row.
	Delimiter = ';'

	// TimestampLayout formats the Timestamp column.
	TimestampLayout = "2006-01-02"

	numFields = 5
)

// Header is the column header row.
var Header = []string{"Timestamp", "File Path", "MD5", "SHA1", "SHA256"}

// Row is one persisted file record.
type Row struct {
	Timestamp string
	Path      types.FileIdentity
	Digests   types.DigestSet
}

// Rows converts a snapshot to rows in path order, stamped with ts.
func Rows(snap types.Snapshot, ts time.Time) []Row {
	stamp := ts.Format(TimestampLayout)
	rows := make([]Row, 0, snap.Len())
	snap.Range(func(path types.FileIdentity, ds types.DigestSet) bool {
		rows = append(rows, Row{Timestamp: stamp, Path: path, Digests: ds})
		return true
	})
	return rows
}

// WriteRows writes the header followed by rows.
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Timestamp, r.Path, r.Digests.MD5, r.Digests.SHA1, r.Digests.SHA256}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// rowError is a row-level parse failure; Store.Load attaches the file path.
type rowError struct {
	line   int
	reason string
}

func (e *rowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.reason)
}

// ReadRows parses a header and rows. Every row must have five fields, a
// non-empty unique path and well-formed lowercase hex digests.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	// Field counts are checked per row to report the offending line.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &rowError{line: 1, reason: "missing header"}
	}
	if err != nil {
		return nil, parseError(err)
	}
	if !slices.Equal(header, Header) {
		return nil, &rowError{line: 1, reason: fmt.Sprintf("unexpected header %q", strings.Join(header, string(Delimiter)))}
	}

	var rows []Row
	seen := make(map[types.FileIdentity]int)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		line, _ := cr.FieldPos(0)

		row, reason := parseRecord(record)
		if reason != "" {
			return nil, &rowError{line: line, reason: reason}
		}
		if first, dup := seen[row.Path]; dup {
			return nil, &rowError{line: line, reason: fmt.Sprintf("duplicate path %s (first on line %d)", row.Path, first)}
		}
		seen[row.Path] = line
		rows = append(rows, row)
	}

	return rows, nil
}

func parseRecord(record []string) (Row, string) {
	if len(record) != numFields {
		return Row{}, fmt.Sprintf("expected %d fields, got %d", numFields, len(record))
	}
	if record[1] == "" {
		return Row{}, "empty file path"
	}

	ds := types.DigestSet{MD5: record[2], SHA1: record[3], SHA256: record[4]}
	for _, d := range []struct {
		name  string
		value string
		size  int
	}{
		{"MD5", ds.MD5, 32},
		{"SHA1", ds.SHA1, 40},
		{"SHA256", ds.SHA256, 64},
	} {
		if !isLowerHex(d.value, d.size) {
			return Row{}, fmt.Sprintf("malformed %s digest %q", d.name, d.value)
		}
	}

	return Row{Timestamp: record[0], Path: record[1], Digests: ds}, ""
}

func parseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &rowError{line: pe.Line, reason: pe.Err.Error()}
	}
	return err
}

func isLowerHex(s string, size int) bool {
	if len(s) != size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
