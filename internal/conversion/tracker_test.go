package conversion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodviz/internal/api"
	"foodviz/internal/catalog"
	"foodviz/internal/domain"
)

type startCall struct {
	productID string
	imageURL  string
}

type stubStarter struct {
	mu    sync.Mutex
	calls []startCall
	err   error
	block chan struct{}
}

func (s *stubStarter) StartConversion(ctx context.Context, productID, imageURL string) (api.ConversionAck, error) {
	s.mu.Lock()
	s.calls = append(s.calls, startCall{productID, imageURL})
	block := s.block
	err := s.err
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return api.ConversionAck{}, err
	}
	return api.ConversionAck{Success: true}, nil
}

func (s *stubStarter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ConversionEvent
}

func (p *recordingPublisher) PublishConversion(ctx context.Context, evt domain.ConversionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, string(e.From)+"->"+string(e.To))
	}
	return out
}

func newTracker(t *testing.T, starter Starter, pub Publisher) *Tracker {
	t.Helper()
	tr, err := NewTracker(Options{
		Starter:   starter,
		Publisher: pub,
		Now:       func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return tr
}

func TestStartSendsExactRequestAndPolls(t *testing.T) {
	starter := &stubStarter{}
	tr := newTracker(t, starter, nil)

	if got := tr.State("p1"); got != domain.ConversionIdle {
		t.Fatalf("initial state = %s, want idle", got)
	}
	job, err := tr.Start(context.Background(), "p1", "https://x/img.png")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(starter.calls) != 1 || starter.calls[0] != (startCall{"p1", "https://x/img.png"}) {
		t.Fatalf("calls = %+v", starter.calls)
	}
	if job.State != domain.ConversionPolling {
		t.Fatalf("state after ack = %s, want polling", job.State)
	}
	if job.Attempts != 1 {
		t.Fatalf("Attempts = %d", job.Attempts)
	}
}

func TestStartIsGuardedWhileInFlight(t *testing.T) {
	starter := &stubStarter{block: make(chan struct{})}
	tr := newTracker(t, starter, nil)

	done := make(chan error, 1)
	go func() {
		_, err := tr.Start(context.Background(), "p1", "https://x/img.png")
		done <- err
	}()
	deadline := time.After(2 * time.Second)
	for tr.State("p1") != domain.ConversionRequested {
		select {
		case <-deadline:
			t.Fatalf("job never entered requested")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := tr.Start(context.Background(), "p1", "https://x/img.png"); !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("duplicate start err = %v, want ErrDuplicateOperation", err)
	}
	close(starter.block)
	if err := <-done; err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := tr.Start(context.Background(), "p1", "https://x/img.png"); !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("start while polling err = %v, want ErrDuplicateOperation", err)
	}
	if starter.count() != 1 {
		t.Fatalf("backend called %d times, want 1", starter.count())
	}
}

func TestStartFailureUsesBackendMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend message", &api.Error{Status: 400, Message: "Image not reachable", Kind: domain.ErrValidation}, "Image not reachable"},
		{"no message", &api.Error{Status: 502, Kind: domain.ErrTransient}, GenericFailure},
		{"network", errors.New("dial tcp: connection refused"), GenericFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTracker(t, &stubStarter{err: tc.err}, nil)
			job, err := tr.Start(context.Background(), "p1", "https://x/img.png")
			if err == nil {
				t.Fatalf("expected error")
			}
			if job.State != domain.ConversionFailed || job.Failure != domain.FailureRequest {
				t.Fatalf("job = %+v", job)
			}
			if job.ErrorMessage != tc.want {
				t.Fatalf("ErrorMessage = %q, want %q", job.ErrorMessage, tc.want)
			}
		})
	}
}

func TestObserveResolvesPollingJobs(t *testing.T) {
	pub := &recordingPublisher{}
	tr := newTracker(t, &stubStarter{}, pub)
	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := tr.Start(ctx, id, "https://x/"+id+".png"); err != nil {
			t.Fatalf("Start %s: %v", id, err)
		}
	}

	tr.Observe(ctx, []domain.Product{
		{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/p1.glb"},
		{ID: "p2", ModelStatus: domain.ModelStatusFailed},
		{ID: "p3", ModelStatus: domain.ModelStatusProcessing},
		{ID: "untracked", ModelStatus: domain.ModelStatusProcessing},
	}, time.Now())

	if got, _ := tr.Job("p1"); got.State != domain.ConversionSucceeded || got.ModelURL != "https://x/p1.glb" {
		t.Fatalf("p1 = %+v", got)
	}
	p2, _ := tr.Job("p2")
	if p2.State != domain.ConversionFailed || p2.Failure != domain.FailureJob {
		t.Fatalf("p2 = %+v", p2)
	}
	if tr.State("p3") != domain.ConversionPolling {
		t.Fatalf("p3 = %s", tr.State("p3"))
	}
	if _, ok := tr.Job("untracked"); ok {
		t.Fatalf("untracked product should not be adopted by default")
	}
	if tr.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", tr.Pending())
	}
}

func TestCompletedWithoutModelURLKeepsPolling(t *testing.T) {
	tr := newTracker(t, &stubStarter{}, nil)
	if _, err := tr.Start(context.Background(), "p1", "https://x/img.png"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tr.Observe(context.Background(), []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusCompleted}}, time.Now())
	if tr.State("p1") != domain.ConversionPolling {
		t.Fatalf("state = %s, want polling", tr.State("p1"))
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	pub := &recordingPublisher{}
	starter := &stubStarter{err: &api.Error{Status: 500, Kind: domain.ErrTransient}}
	tr := newTracker(t, starter, pub)
	ctx := context.Background()

	if _, err := tr.Retry(ctx, "p1", "https://x/img.png"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("retry of idle err = %v, want ErrInvalidTransition", err)
	}
	if _, err := tr.Start(ctx, "p1", "https://x/img.png"); err == nil {
		t.Fatalf("expected start failure")
	}
	if _, err := tr.Start(ctx, "p1", "https://x/img.png"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("start from failed err = %v, want ErrInvalidTransition", err)
	}

	starter.mu.Lock()
	starter.err = nil
	starter.mu.Unlock()
	job, err := tr.Retry(ctx, "p1", "")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if job.State != domain.ConversionPolling || job.Attempts != 2 || job.ErrorMessage != "" {
		t.Fatalf("job after retry = %+v", job)
	}
	if starter.calls[1].imageURL != "https://x/img.png" {
		t.Fatalf("retry should reuse the stored image url, got %+v", starter.calls[1])
	}

	want := []string{
		"idle->requested", "requested->failed",
		"failed->idle", "idle->requested", "requested->polling",
	}
	got := pub.transitions()
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}
}

func TestRestartAfterSuccess(t *testing.T) {
	tr := newTracker(t, &stubStarter{}, nil)
	ctx := context.Background()
	if _, err := tr.Start(ctx, "p1", "https://x/img.png"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tr.Observe(ctx, []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/m.glb"}}, time.Now())
	job, err := tr.Start(ctx, "p1", "https://x/img2.png")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if job.State != domain.ConversionPolling || job.ModelURL != "" {
		t.Fatalf("job = %+v", job)
	}
}

func TestAdoptProcessing(t *testing.T) {
	pub := &recordingPublisher{}
	tr, err := NewTracker(Options{Starter: &stubStarter{}, Publisher: pub, AdoptProcessing: true})
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	ctx := context.Background()
	tr.Observe(ctx, []domain.Product{
		{ID: "p1", ModelStatus: domain.ModelStatusProcessing},
		{ID: "p2", ModelStatus: domain.ModelStatusPending},
	}, time.Now())
	if tr.State("p1") != domain.ConversionPolling {
		t.Fatalf("p1 = %s, want polling", tr.State("p1"))
	}
	if tr.State("p2") != domain.ConversionIdle {
		t.Fatalf("pending products are not adopted")
	}
	tr.Observe(ctx, []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/m.glb"}}, time.Now())
	if tr.State("p1") != domain.ConversionSucceeded {
		t.Fatalf("p1 = %s, want succeeded", tr.State("p1"))
	}
	if len(tr.Jobs()) != 1 {
		t.Fatalf("Jobs = %+v", tr.Jobs())
	}
}

func TestStartValidatesInput(t *testing.T) {
	starter := &stubStarter{}
	tr := newTracker(t, starter, nil)
	if _, err := tr.Start(context.Background(), "", "https://x/img.png"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if _, err := tr.Start(context.Background(), "p1", " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if starter.count() != 0 {
		t.Fatalf("backend should not be called")
	}
}

func TestSnapshotIssuedBeforeAckIsIgnored(t *testing.T) {
	tr := newTracker(t, &stubStarter{}, nil)
	ctx := context.Background()

	issuedBeforeStart := time.Now()
	if _, err := tr.Start(ctx, "p1", "https://x/img.png"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tr.Observe(ctx, []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/old.glb"}}, issuedBeforeStart)
	if got, _ := tr.Job("p1"); got.State != domain.ConversionPolling || got.ModelURL != "" {
		t.Fatalf("job after early snapshot = %+v, want polling", got)
	}

	tr.Observe(ctx, []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/new.glb"}}, time.Now())
	if got, _ := tr.Job("p1"); got.State != domain.ConversionSucceeded || got.ModelURL != "https://x/new.glb" {
		t.Fatalf("job = %+v, want succeeded with new model", got)
	}
}

func TestReconversionWaitsForBackendReset(t *testing.T) {
	tr := newTracker(t, &stubStarter{}, nil)
	ctx := context.Background()
	old := domain.Product{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/old.glb"}

	tr.Observe(ctx, []domain.Product{old}, time.Now())
	if _, err := tr.Start(ctx, "p1", "https://x/img.png"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tr.Observe(ctx, []domain.Product{old}, time.Now())
	if tr.State("p1") != domain.ConversionPolling {
		t.Fatalf("unchanged completed status resolved the job: %s", tr.State("p1"))
	}

	tr.Observe(ctx, []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusProcessing}}, time.Now())
	tr.Observe(ctx, []domain.Product{old}, time.Now())
	if got, _ := tr.Job("p1"); got.State != domain.ConversionSucceeded || got.ModelURL != "https://x/old.glb" {
		t.Fatalf("job after processing then completed = %+v", got)
	}
}

func TestRetryIgnoresPreviousFailureUntilReset(t *testing.T) {
	tr := newTracker(t, &stubStarter{}, nil)
	ctx := context.Background()
	failed := domain.Product{ID: "p1", ModelStatus: domain.ModelStatusFailed}

	if _, err := tr.Start(ctx, "p1", "https://x/img.png"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tr.Observe(ctx, []domain.Product{failed}, time.Now())
	if tr.State("p1") != domain.ConversionFailed {
		t.Fatalf("state = %s, want failed", tr.State("p1"))
	}

	if _, err := tr.Retry(ctx, "p1", ""); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	tr.Observe(ctx, []domain.Product{failed}, time.Now())
	if tr.State("p1") != domain.ConversionPolling {
		t.Fatalf("stale failure ended the retry: %s", tr.State("p1"))
	}
	tr.Observe(ctx, []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/m.glb"}}, time.Now())
	if tr.State("p1") != domain.ConversionSucceeded {
		t.Fatalf("state = %s, want succeeded", tr.State("p1"))
	}
}

// heldSource returns products only after release is closed.
type heldSource struct {
	called   chan struct{}
	release  chan struct{}
	products []domain.Product
}

func (s *heldSource) ListProducts(ctx context.Context, q api.ProductQuery) ([]domain.Product, error) {
	close(s.called)
	<-s.release
	return s.products, nil
}

func (s *heldSource) CreateProduct(context.Context, domain.ProductInput, *domain.Upload) (domain.Product, error) {
	return domain.Product{}, errors.New("not supported")
}

func (s *heldSource) DeleteProduct(context.Context, string) error { return nil }

func (s *heldSource) UploadAsset(context.Context, *domain.Upload) (string, error) { return "", nil }

func TestLoadInFlightDuringStartDoesNotComplete(t *testing.T) {
	src := &heldSource{
		called:   make(chan struct{}),
		release:  make(chan struct{}),
		products: []domain.Product{{ID: "p1", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/old.glb"}},
	}
	cat, err := catalog.New(catalog.Options{Source: src})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	tr := newTracker(t, &stubStarter{}, nil)
	ctx := context.Background()
	cat.AddObserver(func(products []domain.Product, issuedAt time.Time) {
		tr.Observe(ctx, products, issuedAt)
	})

	loaded := make(chan error, 1)
	go func() { loaded <- cat.Load(ctx, catalog.Filters{}) }()
	<-src.called

	if job, err := tr.Start(ctx, "p1", "https://x/img.png"); err != nil || job.State != domain.ConversionPolling {
		t.Fatalf("Start = %+v, %v", job, err)
	}
	close(src.release)
	if err := <-loaded; err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, _ := tr.Job("p1"); got.State != domain.ConversionPolling || got.ModelURL != "" {
		t.Fatalf("job after load issued before ack = %+v, want polling", got)
	}
}
