package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Header columns preceding the numeric block. Russian names match the
// upstream export so downstream notebooks keep working unchanged.
var contextColumns = []string{
	"session_id",
	"Номер устройства",
	"Номер сессии",
	"Дата и время события",
	"Производитель устройства",
	"Модель устройства",
	"Тип устройства",
	"Операционная система",
	"age",
	"gender",
	"is_lost",
	"is_stay",
	"is_new",
}

// WriteCSV writes the table with context columns first, then the numeric
// feature columns in contract order.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, contextColumns...), t.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write feature header: %w", err)
	}

	record := make([]string, 0, len(header))
	for i := range t.Rows {
		r := &t.Rows[i]
		record = record[:0]

		age := ""
		if r.Age != nil {
			age = strconv.Itoa(*r.Age)
		}
		record = append(record,
			strconv.FormatInt(r.SessionID, 10),
			strconv.FormatInt(r.DeviceID, 10),
			strconv.FormatInt(r.SessionNum, 10),
			r.FirstEvent.Format(time.RFC3339),
			r.Manufacturer,
			r.Model,
			r.DeviceType,
			r.OS,
			age,
			r.Gender,
			boolCell(r.IsLost),
			boolCell(r.IsStay),
			boolCell(r.IsNew),
		)
		for _, v := range r.Values(t.Prefixes) {
			record = append(record, strconv.FormatInt(v, 10))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write feature row %d: %w", r.SessionID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path, creating or truncating it.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create feature file: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func boolCell(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
