package event

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Raw source column names. The export uses Russian headers; they are part of
// the ingestion contract, not of any downstream surface.
const (
	colTimestamp    = "Дата и время события"
	colDeviceID     = "Идентификатор устройства"
	colSessionNum   = "Номер сессии в рамках устройства"
	colScreen       = "Экран"
	colFunctional   = "Функционал"
	colAction       = "Действие"
	colManufacturer = "Производитель устройства"
	colModel        = "Модель устройства"
	colDeviceType   = "Тип устройства"
	colOS           = "ОС"

	colUserNumber = "number"
	colUserAge    = "age_back"
	colUserGender = "gender"
)

// LoadStats counts row-level anomalies absorbed during loading.
type LoadStats struct {
	Rows            int
	BadTimestamps   int // coerced to the zero time
	BadDeviceIDs    int // row dropped
	BadSessionNums  int // row dropped
	MissingActions  int // filled with ActionUnspecified
}

// ReadEvents reads the raw event log from path.
//
// Structural problems (missing file, missing required column, empty file)
// return an error. Row-level problems are coerced per LoadStats and never
// abort the load.
func ReadEvents(path string) ([]Event, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()
	return readEvents(f)
}

func readEvents(r io.Reader) ([]Event, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read events header: %w", err)
	}
	idx, err := headerIndex(header, colTimestamp, colDeviceID, colSessionNum, colScreen, colFunctional, colAction)
	if err != nil {
		return nil, stats, err
	}

	get := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var events []Event
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read events row: %w", err)
		}
		stats.Rows++

		deviceID, err := strconv.ParseInt(get(rec, colDeviceID), 10, 64)
		if err != nil {
			stats.BadDeviceIDs++
			continue
		}
		sessionNum, err := strconv.ParseInt(get(rec, colSessionNum), 10, 64)
		if err != nil {
			stats.BadSessionNums++
			continue
		}

		ts, ok := ParseTimestamp(get(rec, colTimestamp))
		if !ok {
			stats.BadTimestamps++
		}

		action := get(rec, colAction)
		if action == "" {
			action = ActionUnspecified
			stats.MissingActions++
		}

		events = append(events, Event{
			DeviceID:     deviceID,
			SessionNum:   sessionNum,
			Timestamp:    ts,
			Screen:       get(rec, colScreen),
			Functional:   get(rec, colFunctional),
			Action:       action,
			Manufacturer: get(rec, colManufacturer),
			Model:        get(rec, colModel),
			DeviceType:   get(rec, colDeviceType),
			OS:           get(rec, colOS),
		})
	}

	if len(events) == 0 {
		return nil, stats, fmt.Errorf("events file contains no usable rows")
	}
	return events, stats, nil
}

// ReadUsers reads the raw users table from path. Age is optional per row;
// a row with an unparseable or empty age keeps a nil Age rather than being
// dropped.
func ReadUsers(path string) ([]User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}
	defer f.Close()
	return readUsers(f)
}

func readUsers(r io.Reader) ([]User, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read users header: %w", err)
	}
	idx, err := headerIndex(header, colUserNumber)
	if err != nil {
		return nil, err
	}

	var users []User
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read users row: %w", err)
		}

		id, err := strconv.ParseInt(strings.TrimSpace(rec[idx[colUserNumber]]), 10, 64)
		if err != nil {
			continue
		}
		u := User{DeviceID: id}
		if i, ok := idx[colUserAge]; ok && i < len(rec) {
			if age, err := strconv.Atoi(strings.TrimSpace(rec[i])); err == nil {
				u.Age = &age
			}
		}
		if i, ok := idx[colUserGender]; ok && i < len(rec) {
			u.Gender = strings.TrimSpace(rec[i])
		}
		users = append(users, u)
	}
	return users, nil
}

// ParseTimestamp parses an ISO-8601-like timestamp, stripping a bracketed
// zone name suffix first ("2025-09-29T10:20:27+03:00[Europe/Moscow]").
// Returns the zero time and false when the value cannot be parsed.
func ParseTimestamp(s string) (time.Time, bool) {
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func headerIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("required column %q not found", name)
		}
	}
	return idx, nil
}
