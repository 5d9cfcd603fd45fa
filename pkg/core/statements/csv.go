package statements

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LabelColumn is the header of the account-label column in persisted CSVs.
const LabelColumn = "Account"

// ReadRawCSV parses a persisted statement: a header row with the label column
// followed by period columns, then one row per account.
func ReadRawCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &RawTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := &RawTable{}
	if len(header) > 1 {
		table.Periods = append([]string(nil), header[1:]...)
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(record) == 0 {
			continue
		}
		row := RawRow{Label: record[0], Values: MissingSeries(len(table.Periods))}
		for i := range table.Periods {
			if i+1 < len(record) {
				row.Values[i] = ParseValue(record[i+1])
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ReadRawCSVFile opens and parses path.
func ReadRawCSVFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadRawCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteRawCSV writes t in the layout ReadRawCSV expects.
func WriteRawCSV(w io.Writer, t *RawTable) error {
	cw := csv.NewWriter(w)
	header := append([]string{LabelColumn}, t.Periods...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(t.Periods)+1)
		record = append(record, row.Label)
		for i := range t.Periods {
			v := Missing
			if i < len(row.Values) {
				v = row.Values[i]
			}
			record = append(record, v.String())
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRawCSVFile writes t to path, replacing any existing file.
func WriteRawCSVFile(path string, t *RawTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteRawCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
