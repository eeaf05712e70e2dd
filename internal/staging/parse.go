package staging

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/sells-group/wms-ingest/internal/model"
)

// maxLine bounds a single flat-file line.
const maxLine = 1 << 20

// Rows is the parser output for one staging table.
type Rows struct {
	Table Table
	Rows  [][]any
}

// Batch is the parsed content of one flat file, ready to load.
type Batch struct {
	DocType    model.DocType
	SourceFile string
	Tables     []Rows
}

// Len returns the total number of parsed rows.
func (b *Batch) Len() int {
	n := 0
	for _, t := range b.Tables {
		n += len(t.Rows)
	}
	return n
}

// Counts returns the parsed row count per staging table.
func (b *Batch) Counts() map[string]int {
	out := make(map[string]int, len(b.Tables))
	for _, t := range b.Tables {
		out[t.Table.Name] = len(t.Rows)
	}
	return out
}

// ParseFile opens path, decodes it from Latin-1 and parses it as doc. The
// batch is tagged with the file's base name.
func ParseFile(doc model.DocType, path string) (*Batch, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the configured inbox
	if err != nil {
		return nil, eris.Wrapf(err, "staging: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Parse(doc, filepath.Base(path), f)
}

// Parse reads a Latin-1 encoded flat file of the given document type.
func Parse(doc model.DocType, name string, r io.Reader) (*Batch, error) {
	lines, err := readLines(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		return nil, eris.Wrapf(err, "staging: read %s", name)
	}

	b := &Batch{DocType: doc, SourceFile: name}
	switch doc {
	case model.DocCartoning:
		b.Tables = []Rows{{Table: CartoningTable, Rows: parseCartoning(lines)}}
	case model.DocWaveConfirm:
		b.Tables = []Rows{{Table: WaveConfirmTable, Rows: parseWaveConfirm(lines)}}
	case model.DocOutboundDelivery:
		b.Tables = parseOutboundDelivery(lines)
	case model.DocOBDConfirm:
		b.Tables = parseOBDConfirm(lines)
	default:
		return nil, eris.Errorf("staging: no parser for document type %q", doc)
	}
	return b, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

// Columns separated only by a run of spaces between two digits are treated
// as delimited.
var digitGap = regexp.MustCompile(`(\d)[ \t]{2,}(\d)`)

func parseCartoning(lines []string) [][]any {
	var out [][]any
	for _, line := range lines {
		for digitGap.MatchString(line) {
			line = digitGap.ReplaceAllString(line, "${1};${2}")
		}
		parts := splitTrim(line, ";")
		if parts[0] == "" {
			continue
		}
		out = append(out, fixed(parts, len(CartoningTable.Columns)))
	}
	return out
}

func parseWaveConfirm(lines []string) [][]any {
	out := make([][]any, 0, len(lines))
	for _, line := range lines {
		out = append(out, fixed(splitTrim(line, ";"), len(WaveConfirmTable.Columns)))
	}
	return out
}

// fixed pads or truncates parts to n values. Missing columns are NULL.
func fixed(parts []string, n int) []any {
	row := make([]any, n)
	for i := 0; i < n; i++ {
		if i < len(parts) {
			row[i] = parts[i]
		}
	}
	return row
}

func splitTrim(line, sep string) []string {
	parts := strings.Split(line, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// col returns cols[i] or "" when the segment is short.
func col(cols []string, i int) string {
	if i < len(cols) {
		return cols[i]
	}
	return ""
}
