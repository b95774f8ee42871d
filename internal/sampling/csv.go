package sampling

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/domain"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

var particleHeader = []string{"id", "time", "depth", "lat", "lon"}

// ReadParticles parses a CSV with header id,time,depth,lat,lon. Time is RFC 3339.
func ReadParticles(r io.Reader) ([]domain.Particle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(particleHeader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("points: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("points: read header: %w", err)
	}
	for i, col := range particleHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return nil, fmt.Errorf("points: column %d is %q, want %q", i+1, header[i], col)
		}
	}

	var particles []domain.Particle
	seen := make(map[string]bool)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("points: %w", err)
		}
		line, _ := reader.FieldPos(0)

		p, err := parseParticle(record)
		if err != nil {
			return nil, fmt.Errorf("points line %d: %w", line, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("points line %d: duplicate particle id %q", line, p.ID)
		}
		seen[p.ID] = true
		particles = append(particles, p)
	}

	return particles, nil
}

func parseParticle(record []string) (domain.Particle, error) {
	id := strings.TrimSpace(record[0])
	if id == "" {
		return domain.Particle{}, errors.New("empty particle id")
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(record[1]))
	if err != nil {
		return domain.Particle{}, fmt.Errorf("invalid time: %w", err)
	}

	var coords [3]float64
	for i, name := range []string{"depth", "lat", "lon"} {
		coords[i], err = strconv.ParseFloat(strings.TrimSpace(record[i+2]), 64)
		if err != nil {
			return domain.Particle{}, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	p := nested.Point{Time: ts, Depth: coords[0], Lat: coords[1], Lon: coords[2]}
	if err := p.Validate(); err != nil {
		return domain.Particle{}, err
	}

	return domain.Particle{ID: id, Point: p}, nil
}

// WriteReport writes one row per sample with a value and source column per
// variable. Vector variables add <var>_u and <var>_v columns after the value,
// which holds the speed. Values of out-of-bounds particles are left empty.
func WriteReport(w io.Writer, samples []domain.ParticleSample, vars []string) error {
	writer := csv.NewWriter(w)
	vector := vectorVariables(samples, len(vars))

	header := append([]string{}, particleHeader...)
	header = append(header, "state")
	for i, v := range vars {
		header = append(header, v)
		if vector[i] {
			header = append(header, v+"_u", v+"_v")
		}
		header = append(header, v+"_source")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, s := range samples {
		p := s.Particle.Point
		row := []string{
			s.Particle.ID,
			p.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Depth, 'f', -1, 64),
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			strconv.FormatFloat(p.Lon, 'f', -1, 64),
			string(s.State),
		}
		for i := range vars {
			if i >= len(s.Values) {
				row = append(row, "")
				if vector[i] {
					row = append(row, "", "")
				}
				row = append(row, "")
				continue
			}
			res := s.Values[i]
			row = append(row, formatFloat(res.Value))
			if vector[i] {
				row = append(row, formatFloat(res.Vector.U), formatFloat(res.Vector.V))
			}
			row = append(row, res.Source)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// vectorVariables marks the variable columns that carry vector results.
// A set's kind is fixed, so any sampled particle decides it.
func vectorVariables(samples []domain.ParticleSample, n int) []bool {
	vector := make([]bool, n)
	for _, s := range samples {
		if s.State != domain.StateSampled {
			continue
		}
		for i := range min(n, len(s.Values)) {
			vector[i] = s.Values[i].Vector != nil
		}
		break
	}
	return vector
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
