package sampling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/domain"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/storage"
)

// ErrStore is matched by Run errors caused by object storage.
var ErrStore = errors.New("store report")

// Request contains input parameters for one sampling run.
type Request struct {
	Particles []domain.Particle
	Variables []string
	Date      time.Time
}

// Summary counts particle outcomes of a run.
type Summary struct {
	Key         string
	Sampled     int
	OutOfBounds int
}

// Sampler resolves variables for a batch of particles.
type Sampler interface {
	SampleParticles(ctx context.Context, particles []domain.Particle, vars []string) ([]domain.ParticleSample, error)
}

// ObjectStorage stores run reports.
type ObjectStorage interface {
	PutReport(ctx context.Context, key storage.ObjectKey, report []byte) error
}

// Service orchestrates a sampling run: sample then store the report.
type Service struct {
	sampler       Sampler
	objectStorage ObjectStorage
}

func NewService(sampler Sampler, objectStorage ObjectStorage) *Service {
	return &Service{sampler: sampler, objectStorage: objectStorage}
}

func (s *Service) Run(ctx context.Context, req Request, runID model.RunID) (*Summary, error) {
	if err := runID.Validate(); err != nil {
		return nil, err
	}

	key := storage.ReportKey(req.Date, runID)

	slog.DebugContext(ctx, "sampling started", "particles", len(req.Particles), "variables", req.Variables, "run_id", runID, "key", key.Key())

	samples, err := s.sampler.SampleParticles(ctx, req.Particles, req.Variables)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}

	summary := &Summary{Key: key.Key()}
	for _, sample := range samples {
		switch sample.State {
		case domain.StateOutOfBounds:
			summary.OutOfBounds++
		default:
			summary.Sampled++
		}
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, samples, req.Variables); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	if err := s.objectStorage.PutReport(ctx, key, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.InfoContext(ctx, "sampling complete", "key", key.Key(), "run_id", runID,
		"sampled", summary.Sampled, "out_of_bounds", summary.OutOfBounds)
	return summary, nil
}
