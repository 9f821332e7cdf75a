package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

const delimiter = '\t'

// emptyCell is a record holding a single empty field. csv.Writer renders it as a
// blank line, which csv.Reader skips, so it is written quoted.
const emptyCell = "\"\"\n"

// WriteTSV writes d as UTF-8 tab-separated values, header row first.
func WriteTSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := writeRecord(w, cw, d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range d.Rows {
		if err := writeRecord(w, cw, row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeRecord(w io.Writer, cw *csv.Writer, record []string) error {
	if len(record) != 1 || record[0] != "" {
		return cw.Write(record)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(w, emptyCell)
	return err
}

// ReadTSV parses tab-separated values written by WriteTSV.
// An empty stream yields an empty dataset.
func ReadTSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := checkColumns(header); err != nil {
		return nil, err
	}

	d := &Dataset{Columns: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(d.Rows), err)
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}
