package skeleton

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// Format describes the delimited text layout of a skeleton source.
type Format struct {
	Comma   rune
	Decimal rune
	Header  bool
}

// DefaultFormat matches the exported outlines: a header row, ';' between
// columns and ',' as decimal separator.
func DefaultFormat() Format {
	return Format{Comma: ';', Decimal: ',', Header: true}
}

func (f Format) validate() error {
	if f.Comma == 0 || f.Decimal == 0 {
		return errors.New("skeleton: delimiter and decimal separator must be set")
	}
	if f.Comma == f.Decimal {
		return fmt.Errorf("skeleton: delimiter %q is also the decimal separator", f.Comma)
	}
	return nil
}

// ReadFile reads (x, y) pairs from path.
func ReadFile(path string, f Format) ([]r2.Vec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pts, err := Read(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}

// Read parses two-column records. Blank lines are skipped; any other malformed
// record aborts with its line number.
func Read(r io.Reader, f Format) ([]r2.Vec, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = f.Comma
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	pts := make([]r2.Vec, 0)
	first := true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first && f.Header {
			first = false
			continue
		}
		first = false

		line, _ := cr.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected 2 columns, got %d", line, len(record))
		}
		x, err := parseDecimal(record[0], f.Decimal)
		if err != nil {
			return nil, fmt.Errorf("line %d: x: %w", line, err)
		}
		y, err := parseDecimal(record[1], f.Decimal)
		if err != nil {
			return nil, fmt.Errorf("line %d: y: %w", line, err)
		}
		pts = append(pts, r2.Vec{X: x, Y: y})
	}
	return pts, nil
}

func parseDecimal(s string, decimal rune) (float64, error) {
	s = strings.TrimSpace(s)
	if decimal != '.' {
		s = strings.ReplaceAll(s, string(decimal), ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite coordinate %q", s)
	}
	return v, nil
}
