// Package catalog keeps a local snapshot of the backend's product list. The
// snapshot is never the source of truth: it is replaced wholesale on every
// successful load and only ever patched locally by an optimistic delete.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"foodviz/internal/api"
	"foodviz/internal/domain"
	"foodviz/internal/infra"
	"foodviz/internal/media"
)

// Source is the subset of the backend client the catalog depends on.
type Source interface {
	ListProducts(ctx context.Context, q api.ProductQuery) ([]domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput, image *domain.Upload) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadAsset(ctx context.Context, upload *domain.Upload) (string, error)
}

// Observer receives a copy of every snapshot that replaced the cache, with
// the time its load was issued. Snapshots arrive in issue order; an observer
// must not start a Load.
type Observer func(products []domain.Product, issuedAt time.Time)

// Filters are sent to the listing endpoint. Pagination is never requested from
// the backend; see View.
type Filters struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
}

func (f Filters) query() api.ProductQuery {
	q := api.ProductQuery{Search: strings.TrimSpace(f.Search)}
	if !isAllCategories(f.Category) {
		q.Category = f.Category
	}
	return q
}

// Snapshot is a point-in-time copy of the catalog state.
type Snapshot struct {
	Products    []domain.Product `json:"products"`
	Filters     Filters          `json:"filters"`
	Error       string           `json:"error,omitempty"`
	RefreshedAt time.Time        `json:"refreshed_at,omitempty"`
}

// Options configures a Catalog.
type Options struct {
	Source            Source
	Logger            *infra.Logger
	ImageMaxDimension int
}

// Catalog owns the cached product list.
type Catalog struct {
	source   Source
	logger   *infra.Logger
	maxImage int

	mu          sync.Mutex
	products    []domain.Product
	filters     Filters
	errMsg      string
	refreshedAt time.Time
	issued      uint64
	observers   []Observer

	notifyMu  sync.Mutex
	delivered uint64
}

// New builds a Catalog around the given backend source.
func New(opts Options) (*Catalog, error) {
	if opts.Source == nil {
		return nil, errors.New("catalog: source is required")
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Catalog{
		source:   opts.Source,
		logger:   logger,
		maxImage: opts.ImageMaxDimension,
		products: []domain.Product{},
	}, nil
}

// AddObserver registers fn to be called after each successful refresh.
func (c *Catalog) AddObserver(fn Observer) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Load fetches the product list and replaces the cache with it. Responses to
// loads that were superseded by a later call, or whose context was cancelled
// while in flight, are discarded without touching the cache.
func (c *Catalog) Load(ctx context.Context, f Filters) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	issuedAt := time.Now()
	c.filters = f
	c.mu.Unlock()

	products, err := c.source.ListProducts(ctx, f.query())

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return ctx.Err()
	}
	if seq != c.issued {
		c.mu.Unlock()
		c.logger.Debug().Uint64("seq", seq).Msg("catalog: discarded superseded load")
		return nil
	}
	if err != nil {
		c.errMsg = loadErrorMessage(err)
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("catalog: load failed, keeping previous snapshot")
		return err
	}
	fresh := make([]domain.Product, len(products))
	copy(fresh, products)
	c.products = fresh
	c.errMsg = ""
	c.refreshedAt = time.Now().UTC()
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	c.logger.Debug().Int("products", len(fresh)).Msg("catalog: snapshot replaced")
	c.notify(seq, issuedAt, fresh, observers)
	return nil
}

// notify hands a snapshot to the observers unless a later one has already
// been delivered.
func (c *Catalog) notify(seq uint64, issuedAt time.Time, products []domain.Product, observers []Observer) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if seq <= c.delivered {
		c.logger.Debug().Uint64("seq", seq).Msg("catalog: skipped out-of-order notification")
		return
	}
	c.delivered = seq
	for _, fn := range observers {
		fn(cloneProducts(products), issuedAt)
	}
}

// Refresh reloads with the most recently used filters.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	f := c.filters
	c.mu.Unlock()
	return c.Load(ctx, f)
}

// Remove deletes a product on the backend after explicit confirmation and,
// on success, drops exactly that entry from the cache.
func (c *Catalog) Remove(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	if err := c.source.DeleteProduct(ctx, id); err != nil {
		c.mu.Lock()
		c.errMsg = "Failed to delete product: " + api.MessageOf(err, "request failed")
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.products {
		if p.ID == id {
			next := make([]domain.Product, 0, len(c.products)-1)
			next = append(next, c.products[:i]...)
			next = append(next, c.products[i+1:]...)
			c.products = next
			break
		}
	}
	// Loads issued before the delete could still return the removed item.
	c.issued++
	c.errMsg = ""
	c.logger.Info().Str("product_id", id).Msg("catalog: product removed")
	return nil
}

// CreateRequest carries the product form and optional files.
type CreateRequest struct {
	Input domain.ProductInput
	Image *domain.Upload
	Model *domain.Upload
	// DeferRefresh skips the reload after create; batch callers refresh once
	// when they are done.
	DeferRefresh bool
}

// Create submits a new product and then reloads the catalog. The request is
// never modified so a failed submission can be corrected and resent.
func (c *Catalog) Create(ctx context.Context, req CreateRequest) (domain.Product, error) {
	in := req.Input
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}

	image := req.Image
	if !image.Empty() {
		prepared, err := media.PrepareImage(image, c.maxImage)
		if err != nil {
			if errors.Is(err, media.ErrNotImage) {
				return domain.Product{}, &domain.FieldError{Field: "image", Message: "image must be a JPEG or PNG file"}
			}
			return domain.Product{}, err
		}
		image = prepared.Upload
	}

	if !req.Model.Empty() {
		url, err := c.source.UploadAsset(ctx, req.Model)
		switch {
		case err == nil:
			in.ModelURL = url
			in.ModelStatus = domain.ModelStatusCompleted
		case errors.Is(err, domain.ErrUnauthorized):
			return domain.Product{}, err
		default:
			c.logger.Warn().Err(err).Str("filename", req.Model.Filename).Msg("catalog: model upload failed, creating product as pending")
			in.ModelURL = ""
			in.ModelStatus = domain.ModelStatusPending
		}
	}

	product, err := c.source.CreateProduct(ctx, in, image)
	if err != nil {
		return domain.Product{}, err
	}
	if req.DeferRefresh {
		return product, nil
	}
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn().Err(err).Msg("catalog: refresh after create failed")
	}
	return product, nil
}

// FindByID locates a single product. The listing endpoint is searched for the
// id and the result is matched exactly; the cache is used when the search
// comes back empty.
func (c *Catalog) FindByID(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, &domain.FieldError{Field: "id", Message: "product id is required"}
	}
	products, err := c.source.ListProducts(ctx, api.ProductQuery{Search: id})
	if err != nil {
		if p, ok := c.cached(id); ok && !errors.Is(err, domain.ErrUnauthorized) {
			return p, nil
		}
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	if p, ok := c.cached(id); ok {
		return p, nil
	}
	return domain.Product{}, fmt.Errorf("catalog: product %s: %w", id, domain.ErrNotFound)
}

func (c *Catalog) cached(id string) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Snapshot returns a copy of the current state.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Products:    cloneProducts(c.products),
		Filters:     c.filters,
		Error:       c.errMsg,
		RefreshedAt: c.refreshedAt,
	}
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	copy(out, in)
	return out
}

func loadErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "Session expired. Please log in again."
	case errors.Is(err, domain.ErrTransient):
		return "Failed to load products. Retrying on next refresh."
	default:
		return "Failed to load products: " + api.MessageOf(err, "request failed")
	}
}
