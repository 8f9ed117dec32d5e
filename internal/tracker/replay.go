package tracker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// LoadTrack reads a CSV track with columns
// lat,lng,accuracy,heading,speed,timestamp. A header row is optional and
// only lat and lng are required.
func LoadTrack(src io.Reader) ([]Reading, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var track []Reading
	for line := 1; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read track: %w", err)
		}
		if line == 1 && len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), "lat") {
			continue
		}
		r, err := parseReading(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		track = append(track, r)
	}
	return track, nil
}

func parseReading(fields []string) (Reading, error) {
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	optional := func(i int) (*float64, error) {
		if field(i) == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(field(i), 64)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	var r Reading
	var err error
	if r.Lat, err = strconv.ParseFloat(field(0), 64); err != nil {
		return Reading{}, fmt.Errorf("invalid lat %q", field(0))
	}
	if r.Lng, err = strconv.ParseFloat(field(1), 64); err != nil {
		return Reading{}, fmt.Errorf("invalid lng %q", field(1))
	}
	if field(2) != "" {
		if r.Accuracy, err = strconv.ParseFloat(field(2), 64); err != nil {
			return Reading{}, fmt.Errorf("invalid accuracy %q", field(2))
		}
	}
	if r.Heading, err = optional(3); err != nil {
		return Reading{}, fmt.Errorf("invalid heading %q", field(3))
	}
	if r.Speed, err = optional(4); err != nil {
		return Reading{}, fmt.Errorf("invalid speed %q", field(4))
	}
	if field(5) != "" {
		if r.Timestamp, err = time.Parse(time.RFC3339, field(5)); err != nil {
			return Reading{}, fmt.Errorf("invalid timestamp %q", field(5))
		}
	}
	return r, nil
}

// ReplaySource plays a recorded track back as a Source, one reading per
// Interval. Readings without a timestamp are stamped at emission.
type ReplaySource struct {
	Track    []Reading
	Interval time.Duration
	Loop     bool
}

func (s *ReplaySource) Watch(ctx context.Context) (<-chan Reading, <-chan error) {
	out := make(chan Reading)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		if len(s.Track) == 0 {
			errs <- errors.New("empty track")
			return
		}
		for i := 0; ; i++ {
			if i == len(s.Track) {
				if !s.Loop {
					return
				}
				i = 0
			}
			r := s.Track[i]
			if r.Timestamp.IsZero() {
				r.Timestamp = time.Now()
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
			if s.Interval > 0 {
				t := time.NewTimer(s.Interval)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return
				}
			}
		}
	}()
	return out, errs
}
