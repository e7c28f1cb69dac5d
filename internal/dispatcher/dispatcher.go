// Package dispatcher maps catalog requests to store and search operations and
// renders their fixed response bodies.
package dispatcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/trace"

	"github.com/JakeFAU/catalog-service/internal/accumulator"
	"github.com/JakeFAU/catalog-service/internal/catalog"
	"github.com/JakeFAU/catalog-service/internal/logrecord"
	"github.com/JakeFAU/catalog-service/internal/metrics"
)

// Routes served by the dispatcher.
const (
	PathList   = "/getCataloglist"
	PathGet    = "/getCatalog"
	PathInsert = "/insertCatalog"
	PathSearch = "/searchfromURL"
)

// Response bodies.
const (
	MsgNotFound       = "Error: Catalog not found.\n"
	MsgMissingID      = "Error: Missing catalog ID.\n"
	MsgMissingFields  = "Error: Missing ID or catalog name.\n"
	MsgStorage        = "Error: Could not open catalog list file.\n"
	MsgInserted       = "Success: Catalog inserted.\n"
	MsgMissingQuery   = "Error: Missing query parameter."
	MsgInvalidRequest = "Error: Invalid request.\n"
	MsgUnreadableBody = "Error: Could not read request body.\n"
)

// Catalog is the persistence the dispatcher reads and appends to.
type Catalog interface {
	ListAll(ctx context.Context) ([]byte, error)
	FindByID(ctx context.Context, id string) (string, error)
	Insert(ctx context.Context, id, name string) error
}

// Searcher proxies a free-text query upstream.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// Hooks receives telemetry around each request. Implementations must not
// fail or block the request.
type Hooks interface {
	StartRequest(ctx context.Context, path string) (context.Context, trace.Span)
	CountRequest(ctx context.Context, path string)
	Log(ctx context.Context, level logrecord.Level, path, msg string)
	EndRequest(span trace.Span)
}

// Request is the transport-neutral view of one incoming call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   io.Reader
}

// Dispatcher routes requests.
type Dispatcher struct {
	catalog  Catalog
	searcher Searcher
	hooks    Hooks
	capacity int
}

// New creates a Dispatcher. bodyCapacity bounds the buffered insert payload.
func New(c Catalog, s Searcher, h Hooks, bodyCapacity int) *Dispatcher {
	if bodyCapacity <= 0 {
		bodyCapacity = accumulator.DefaultCapacity
	}
	return &Dispatcher{
		catalog:  c,
		searcher: s,
		hooks:    h,
		capacity: bodyCapacity,
	}
}

// Dispatch serves one request and returns the response body.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) string {
	ctx, span := d.hooks.StartRequest(ctx, req.Path)
	defer d.hooks.EndRequest(span)

	d.hooks.CountRequest(ctx, req.Path)
	d.hooks.Log(ctx, logrecord.LevelInfo, req.Path, "Processing request")

	switch {
	case req.Method == http.MethodGet && req.Path == PathList:
		return d.list(ctx, req)
	case req.Method == http.MethodGet && req.Path == PathGet:
		return d.get(ctx, req)
	case req.Method == http.MethodPost && req.Path == PathInsert:
		return d.insert(ctx, req)
	case req.Method == http.MethodGet && req.Path == PathSearch:
		return d.search(ctx, req)
	default:
		metrics.ObserveOperation("invalid", metrics.ResultInvalid)
		return MsgInvalidRequest
	}
}

func (d *Dispatcher) list(ctx context.Context, req Request) string {
	body, err := d.catalog.ListAll(ctx)
	if err != nil {
		d.hooks.Log(ctx, logrecord.LevelError, req.Path, "Failed to open catalog list file")
		metrics.ObserveOperation("list", metrics.ResultUnavailable)
		return MsgStorage
	}
	d.hooks.Log(ctx, logrecord.LevelInfo, req.Path, "Successfully retrieved catalog list")
	metrics.ObserveOperation("list", metrics.ResultOK)
	return string(body)
}

func (d *Dispatcher) get(ctx context.Context, req Request) string {
	if !req.Query.Has("id") {
		metrics.ObserveOperation("get", metrics.ResultInvalid)
		return MsgMissingID
	}
	line, err := d.catalog.FindByID(ctx, req.Query.Get("id"))
	switch {
	case err == nil:
		d.hooks.Log(ctx, logrecord.LevelInfo, req.Path, "Catalog found for given ID")
		metrics.ObserveOperation("get", metrics.ResultOK)
		return line
	case errors.Is(err, catalog.ErrStorageUnavailable):
		d.hooks.Log(ctx, logrecord.LevelError, req.Path, "Failed to open catalog list file")
		metrics.ObserveOperation("get", metrics.ResultUnavailable)
		return MsgStorage
	default:
		d.hooks.Log(ctx, logrecord.LevelWarning, req.Path, "Catalog not found for given ID")
		metrics.ObserveOperation("get", metrics.ResultNotFound)
		return MsgNotFound
	}
}

func (d *Dispatcher) insert(ctx context.Context, req Request) string {
	body := req.Body
	if body == nil {
		body = http.NoBody
	}
	form, err := accumulator.New(d.capacity).Drain(body)
	if err != nil {
		d.hooks.Log(ctx, logrecord.LevelError, req.Path, "Failed to read request body")
		metrics.ObserveOperation("insert", metrics.ResultError)
		return MsgUnreadableBody
	}

	err = d.catalog.Insert(ctx, form.ID, form.Name)
	switch {
	case err == nil:
		d.hooks.Log(ctx, logrecord.LevelInfo, req.Path, "Catalog inserted successfully")
		metrics.ObserveOperation("insert", metrics.ResultOK)
		return MsgInserted
	case errors.Is(err, catalog.ErrInvalidArgument):
		d.hooks.Log(ctx, logrecord.LevelWarning, req.Path, "Invalid catalog insert request")
		metrics.ObserveOperation("insert", metrics.ResultInvalid)
		return MsgMissingFields
	default:
		d.hooks.Log(ctx, logrecord.LevelError, req.Path, "Failed to open catalog list file for writing")
		metrics.ObserveOperation("insert", metrics.ResultUnavailable)
		return MsgStorage
	}
}

func (d *Dispatcher) search(ctx context.Context, req Request) string {
	if !req.Query.Has("q") {
		metrics.ObserveOperation("search", metrics.ResultInvalid)
		return MsgMissingQuery
	}
	return d.searcher.Search(ctx, req.Query.Get("q"))
}
