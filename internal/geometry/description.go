// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package geometry

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/ostafen/raidrescue/internal/errs"
)

// MiB is the unit of the start and end columns of a geometry description.
const MiB = 1 << 20

const descriptionHeader = "# id\tdisk\tfile\tstartMB\tendMB\n"

// Load reads and validates a geometry description. Image files are not opened.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(err, "unable to open geometry description")
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	t, err := New(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads a line oriented geometry description. Blank lines and lines
// starting with '#' are ignored. Every other line has five fields separated by
// whitespace or commas: id, logical disk index, file, start and end, the
// latter two in megabytes (fractions allowed).
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		if len(fields) != 5 {
			return nil, errs.Configf("line %d: expected 5 fields, found %d", lineNo, len(fields))
		}

		disk, err := strconv.Atoi(fields[1])
		if err != nil || disk < 0 {
			return nil, errs.Configf("line %d: invalid logical disk index %q", lineNo, fields[1])
		}

		start, err := parseMB(fields[3])
		if err != nil {
			return nil, errs.Configf("line %d: invalid start %q: %v", lineNo, fields[3], err)
		}

		end, err := parseMB(fields[4])
		if err != nil {
			return nil, errs.Configf("line %d: invalid end %q: %v", lineNo, fields[4], err)
		}

		entries = append(entries, Entry{
			ID:    fields[0],
			Disk:  disk,
			Path:  fields[2],
			Start: start,
			End:   end,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errs.IO(err, "unable to read geometry description")
	}
	return entries, nil
}

func parseMB(s string) (int64, error) {
	mb, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if mb < 0 || math.IsInf(mb, 0) || math.IsNaN(mb) {
		return 0, fmt.Errorf("value out of range")
	}
	return int64(math.Round(mb * MiB)), nil
}

func formatMB(b int64) string {
	return strconv.FormatFloat(float64(b)/MiB, 'f', -1, 64)
}

// WriteTo writes the table as a geometry description that Load reads back
// unchanged.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	sb.WriteString(descriptionHeader)
	for _, e := range t.entries {
		fmt.Fprintf(&sb, "%s\t%d\t%s\t%s\t%s\n", e.ID, e.Disk, e.Path, formatMB(e.Start), formatMB(e.End))
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
