package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"nations.ai/internal/protocol"
)

func WriteSchedules(w io.Writer, rows []protocol.ScheduleRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(protocol.ScheduleHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveSchedules writes the table to path, replacing any existing file.
func SaveSchedules(path string, rows []protocol.ScheduleRow) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteSchedules(f, rows)
}

func ReadSchedules(r io.Reader) ([]protocol.ScheduleRow, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedules table: %w", err)
	}
	if len(header) != len(protocol.ScheduleHeader) || header[0] != protocol.ScheduleHeader[0] {
		return nil, fmt.Errorf("%w: unexpected schedules header %v", protocol.ErrInvalidArgument, header)
	}
	var rows []protocol.ScheduleRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("schedules table: %w", err)
		}
		row, err := protocol.ParseScheduleRecord(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func LoadSchedules(path string) ([]protocol.ScheduleRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadSchedules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
