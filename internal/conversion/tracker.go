// Package conversion tracks 3D conversion jobs as observed from the client.
// The backend decides every outcome; the tracker only records what it was
// told by the start call and what later catalog refreshes show.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"foodviz/internal/api"
	"foodviz/internal/domain"
	"foodviz/internal/infra"
)

// GenericFailure is shown when the backend gave no usable message.
const GenericFailure = "failed to reach conversion service"

// JobFailedMessage is shown when the backend reports the model as failed.
const JobFailedMessage = "3D model generation failed"

// Starter enqueues conversion jobs on the backend.
type Starter interface {
	StartConversion(ctx context.Context, productID, imageURL string) (api.ConversionAck, error)
}

// Publisher receives state changes. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishConversion(ctx context.Context, evt domain.ConversionEvent) error
}

// Options configures a Tracker.
type Options struct {
	Starter   Starter
	Publisher Publisher
	Logger    *infra.Logger
	// AdoptProcessing makes Observe start tracking products the backend
	// reports as processing even if this process never started them.
	AdoptProcessing bool
	Now             func() time.Time
}

// Tracker holds the per-product job view models.
type Tracker struct {
	starter   Starter
	publisher Publisher
	logger    *infra.Logger
	adopt     bool
	now       func() time.Time

	mu       sync.Mutex
	jobs     map[string]*domain.ConversionJob
	watches  map[string]*watch
	observed map[string]observation
}

// observation is the last model status a snapshot showed for a product.
type observation struct {
	status domain.ModelStatus
	model  string
}

// watch holds what Observe needs to tell a fresh outcome from a stale one.
type watch struct {
	ackedAt     time.Time
	baseline    observation
	hasBaseline bool
	sawInFlight bool
}

// stale reports whether a terminal status is just the one the product already
// showed before the job started.
func (w *watch) stale(p domain.Product) bool {
	if !w.hasBaseline || w.sawInFlight {
		return false
	}
	return p.ModelStatus == w.baseline.status && p.ModelURL == w.baseline.model
}

// NewTracker builds a Tracker.
func NewTracker(opts Options) (*Tracker, error) {
	if opts.Starter == nil {
		return nil, errors.New("conversion: starter is required")
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		starter:   opts.Starter,
		publisher: opts.Publisher,
		logger:    logger,
		adopt:     opts.AdoptProcessing,
		now:       now,
		jobs:      make(map[string]*domain.ConversionJob),
		watches:   make(map[string]*watch),
		observed:  make(map[string]observation),
	}, nil
}

// Start sends the start-conversion call. A second Start for a product whose
// job is still requested or polling is rejected without contacting the backend.
// A failed job must go through Retry.
func (t *Tracker) Start(ctx context.Context, productID, imageURL string) (domain.ConversionJob, error) {
	productID = strings.TrimSpace(productID)
	imageURL = strings.TrimSpace(imageURL)
	if productID == "" {
		return domain.ConversionJob{}, &domain.FieldError{Field: "productId", Message: "product id is required"}
	}
	if imageURL == "" {
		return domain.ConversionJob{}, &domain.FieldError{Field: "imageUrl", Message: "image url is required"}
	}

	t.mu.Lock()
	job, ok := t.jobs[productID]
	if ok {
		switch {
		case job.State.Active():
			t.mu.Unlock()
			return *job, fmt.Errorf("conversion: %s already %s: %w", productID, job.State, domain.ErrDuplicateOperation)
		case job.State == domain.ConversionFailed:
			t.mu.Unlock()
			return *job, fmt.Errorf("conversion: %s failed, retry required: %w", productID, domain.ErrInvalidTransition)
		}
	} else {
		job = &domain.ConversionJob{ProductID: productID, State: domain.ConversionIdle}
		t.jobs[productID] = job
	}
	from := job.State
	now := t.now().UTC()
	job.ImageURL = imageURL
	job.State = domain.ConversionRequested
	job.ModelURL = ""
	job.Failure = ""
	job.ErrorMessage = ""
	job.Attempts++
	job.RequestedAt = now
	job.UpdatedAt = now
	w := &watch{}
	if o, ok := t.observed[productID]; ok {
		w.baseline, w.hasBaseline = o, true
	}
	t.watches[productID] = w
	evt := eventFor(*job, from, now)
	t.mu.Unlock()
	t.publish(ctx, evt)

	ack, err := t.starter.StartConversion(ctx, productID, imageURL)

	t.mu.Lock()
	from = job.State
	now = t.now().UTC()
	job.UpdatedAt = now
	if err != nil {
		job.State = domain.ConversionFailed
		job.Failure = domain.FailureRequest
		job.ErrorMessage = api.MessageOf(err, GenericFailure)
	} else {
		job.State = domain.ConversionPolling
		w.ackedAt = time.Now()
	}
	snapshot := *job
	evt = eventFor(snapshot, from, now)
	t.mu.Unlock()
	t.publish(ctx, evt)

	if err != nil {
		t.logger.Warn().Err(err).Str("product_id", productID).Msg("conversion: start request failed")
		return snapshot, err
	}
	t.logger.Info().
		Str("product_id", productID).
		Str("job_id", ack.JobID).
		Int("attempt", snapshot.Attempts).
		Msg("conversion: job queued, waiting for catalog to report completion")
	return snapshot, nil
}

// Retry moves a failed job back to idle and starts it again.
func (t *Tracker) Retry(ctx context.Context, productID, imageURL string) (domain.ConversionJob, error) {
	productID = strings.TrimSpace(productID)
	t.mu.Lock()
	job, ok := t.jobs[productID]
	if !ok || job.State != domain.ConversionFailed {
		state := domain.ConversionIdle
		if ok {
			state = job.State
		}
		t.mu.Unlock()
		return domain.ConversionJob{ProductID: productID, State: state}, fmt.Errorf("conversion: cannot retry %s from %s: %w", productID, state, domain.ErrInvalidTransition)
	}
	if strings.TrimSpace(imageURL) == "" {
		imageURL = job.ImageURL
	}
	now := t.now().UTC()
	job.State = domain.ConversionIdle
	job.UpdatedAt = now
	evt := eventFor(*job, domain.ConversionFailed, now)
	t.mu.Unlock()
	t.publish(ctx, evt)

	return t.Start(ctx, productID, imageURL)
}

// Observe applies a catalog snapshot whose load was issued at issuedAt (zero
// when unknown). Only jobs whose start call was acknowledged are resolved.
// Snapshots issued before the ack are ignored for that job, and a terminal
// status identical to the one seen before Start only counts once the backend
// has shown the product pending or processing in between.
func (t *Tracker) Observe(ctx context.Context, products []domain.Product, issuedAt time.Time) {
	var events []domain.ConversionEvent

	t.mu.Lock()
	now := t.now().UTC()
	for _, p := range products {
		t.observed[p.ID] = observation{status: p.ModelStatus, model: p.ModelURL}
		job, ok := t.jobs[p.ID]
		if !ok {
			if !t.adopt || p.ModelStatus != domain.ModelStatusProcessing {
				continue
			}
			job = &domain.ConversionJob{
				ProductID:   p.ID,
				ImageURL:    p.ImageURL,
				State:       domain.ConversionPolling,
				RequestedAt: now,
				UpdatedAt:   now,
			}
			t.jobs[p.ID] = job
			t.watches[p.ID] = &watch{sawInFlight: true}
			events = append(events, eventFor(*job, domain.ConversionIdle, now))
			continue
		}
		if job.State != domain.ConversionPolling {
			continue
		}
		w := t.watches[p.ID]
		if w == nil {
			w = &watch{}
			t.watches[p.ID] = w
		}
		if !issuedAt.IsZero() && issuedAt.Before(w.ackedAt) {
			continue
		}
		if p.ModelStatus.InFlight() {
			w.sawInFlight = true
			continue
		}
		if w.stale(p) {
			continue
		}
		switch {
		case p.PreviewEligible():
			job.State = domain.ConversionSucceeded
			job.ModelURL = p.ModelURL
		case p.ModelStatus == domain.ModelStatusFailed:
			job.State = domain.ConversionFailed
			job.Failure = domain.FailureJob
			job.ErrorMessage = JobFailedMessage
		default:
			continue
		}
		job.UpdatedAt = now
		events = append(events, eventFor(*job, domain.ConversionPolling, now))
	}
	t.mu.Unlock()

	for _, evt := range events {
		t.logger.Info().
			Str("product_id", evt.ProductID).
			Str("state", string(evt.To)).
			Msg("conversion: state observed")
		t.publish(ctx, evt)
	}
}

// State returns the current state for a product; untracked products are idle.
func (t *Tracker) State(productID string) domain.ConversionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[productID]; ok {
		return job.State
	}
	return domain.ConversionIdle
}

// Job returns a copy of the job for productID.
func (t *Tracker) Job(productID string) (domain.ConversionJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[productID]
	if !ok {
		return domain.ConversionJob{ProductID: productID, State: domain.ConversionIdle}, false
	}
	return *job, true
}

// Jobs returns all tracked jobs ordered by product id.
func (t *Tracker) Jobs() []domain.ConversionJob {
	t.mu.Lock()
	out := make([]domain.ConversionJob, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Pending reports how many jobs are still waiting on the backend.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, job := range t.jobs {
		if job.State.Active() {
			n++
		}
	}
	return n
}

func (t *Tracker) publish(ctx context.Context, evt domain.ConversionEvent) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishConversion(ctx, evt); err != nil {
		t.logger.Warn().Err(err).Str("product_id", evt.ProductID).Msg("conversion: publish event")
	}
}

func eventFor(job domain.ConversionJob, from domain.ConversionState, at time.Time) domain.ConversionEvent {
	return domain.ConversionEvent{
		ProductID:  job.ProductID,
		From:       from,
		To:         job.State,
		ModelURL:   job.ModelURL,
		Failure:    job.Failure,
		Error:      job.ErrorMessage,
		Attempts:   job.Attempts,
		HappenedAt: at.Unix(),
	}
}
