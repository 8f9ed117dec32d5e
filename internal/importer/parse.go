package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"backend-trailhunt/internal/challenge"
	"backend-trailhunt/internal/route"
	"backend-trailhunt/internal/waypoint"
)

// ValidationError lists every problem found in a file, one entry per issue.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

type record map[string]string

func (r record) get(field string) string {
	return strings.TrimSpace(r[field])
}

func (r record) optional(field string) *string {
	v := r.get(field)
	if v == "" {
		return nil
	}
	return &v
}

// readRecords reads a header CSV into maps keyed by lowercased column name.
// Blank lines are skipped.
func readRecords(src io.Reader) ([]record, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var out []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(fields) {
			continue
		}
		rec := record{}
		for i, f := range fields {
			if i < len(header) {
				rec[header[i]] = f
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseFloat accepts finite numbers only; ParseFloat alone lets NaN and Inf
// through every range check.
func parseFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parsePoints returns 1 for an empty cell.
func parsePoints(raw string) (int, bool) {
	if raw == "" {
		return 1, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseWaypoints validates and transforms a waypoints file. Row numbers in
// errors count the header as row 1.
func ParseWaypoints(src io.Reader) ([]waypoint.Waypoint, error) {
	records, err := readRecords(src)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if len(records) == 0 {
		verr.add("No waypoint data found")
	}
	wps := make([]waypoint.Waypoint, 0, len(records))
	for i, rec := range records {
		row := i + 2
		wp := waypoint.Waypoint{
			Name:           rec.get("name"),
			Description:    rec.get("description"),
			Icon:           rec.get("icon"),
			Category:       rec.optional("category"),
			DirectionsNote: rec.optional("directions_note"),
			SortOrder:      i,
		}
		if wp.Name == "" {
			verr.add("Row %d: Missing name", row)
		}

		lat, latOK := parseFloat(rec.get("latitude"))
		lng, lngOK := parseFloat(rec.get("longitude"))
		switch {
		case !latOK:
			verr.add("Row %d: Invalid latitude", row)
		case lat < -90 || lat > 90:
			verr.add("Row %d: Latitude must be between -90 and 90", row)
		}
		switch {
		case !lngOK:
			verr.add("Row %d: Invalid longitude", row)
		case lng < -180 || lng > 180:
			verr.add("Row %d: Longitude must be between -180 and 180", row)
		}
		wp.Lat, wp.Lng = lat, lng

		points, ok := parsePoints(rec.get("points"))
		if !ok {
			verr.add("Row %d: Invalid points value", row)
		}
		wp.Points = points

		if wp.Icon == "" {
			wp.Icon = waypoint.DefaultIcon
		} else if !waypoint.ValidIcon(wp.Icon) {
			verr.add("Row %d: Unknown icon %q", row, wp.Icon)
		}

		if raw := rec.get("completion_radius_m"); raw != "" {
			radius, ok := parseFloat(raw)
			if !ok || radius <= 0 {
				verr.add("Row %d: Invalid completion radius", row)
			} else {
				wp.CompletionRadiusM = &radius
			}
		}
		wps = append(wps, wp)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return wps, nil
}

func ParseChallenges(src io.Reader) ([]challenge.Challenge, error) {
	records, err := readRecords(src)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if len(records) == 0 {
		verr.add("No challenge data found")
	}
	chs := make([]challenge.Challenge, 0, len(records))
	for i, rec := range records {
		row := i + 2
		ch := challenge.Challenge{
			Title:       rec.get("title"),
			Description: rec.get("description"),
			Category:    rec.optional("category"),
			SortOrder:   i,
		}
		if ch.Title == "" {
			verr.add("Row %d: Missing title", row)
		}
		if ch.Description == "" {
			verr.add("Row %d: Missing description", row)
		}
		raw := rec.get("points")
		points, ok := parsePoints(raw)
		if raw == "" || !ok {
			verr.add("Row %d: Invalid points value", row)
		}
		ch.Points = points
		chs = append(chs, ch)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return chs, nil
}

// ParseRoute reads the first data row of a route file.
func ParseRoute(src io.Reader) (route.Route, error) {
	records, err := readRecords(src)
	if err != nil {
		return route.Route{}, err
	}

	verr := &ValidationError{}
	if len(records) == 0 {
		verr.add("No route data found")
		return route.Route{}, verr
	}

	rec := records[0]
	r := route.Route{
		Name:        rec.get("name"),
		Description: rec.get("description"),
	}
	if r.Name == "" {
		verr.add("Missing route name")
	}
	r.StartDate = parseDate(verr, rec.get("start_date"), "start date")
	r.EndDate = parseDate(verr, rec.get("end_date"), "end date")
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		verr.add("End date must not be before start date")
	}
	if err := verr.orNil(); err != nil {
		return route.Route{}, err
	}
	return r, nil
}

func parseDate(verr *ValidationError, raw, label string) time.Time {
	if raw == "" {
		verr.add("Missing %s", label)
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	verr.add("Invalid %s %q", label, raw)
	return time.Time{}
}
