package client

import (
	"context"
	stdjson "encoding/json"
	"net/http"

	"github.com/foomo/gitdb/pkg/handler"
	"github.com/foomo/gitdb/pkg/snapshot"
	"github.com/foomo/gitdb/pkg/store"
	"github.com/foomo/gitdb/pkg/utils"
	"github.com/foomo/gitdb/requests"
	"github.com/foomo/gitdb/responses"
	"github.com/pkg/errors"
)

// Client a gitdb client
type Client struct {
	t transport
}

// New creates a client talking to the handler mounted at server
func New(server string, httpClient *http.Client) (*Client, error) {
	if !utils.IsValidURL(server) {
		return nil, errors.Errorf("invalid server url: %q", server)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		t: NewHTTPTransport(server, httpClient),
	}, nil
}

// NewHTTPClient creates a client using the default http client
func NewHTTPClient(server string) (*Client, error) {
	return New(server, nil)
}

// Create adds a record and returns the recorded snapshot
func (c *Client) Create(ctx context.Context, file, id string, data any) (string, error) {
	value, err := marshalValue(data)
	if err != nil {
		return "", err
	}
	res := &responses.Snapshot{}
	err = c.t.call(ctx, handler.RouteCreate, &requests.Create{
		Record: requests.Record{File: file, ID: id},
		Data:   value,
	}, res)
	return res.Snapshot, err
}

// Read returns the value of a record at rev
func (c *Client) Read(ctx context.Context, file, id, rev string) (stdjson.RawMessage, error) {
	res := &responses.Record{}
	if err := c.t.call(ctx, handler.RouteRead, &requests.Read{
		Record:   requests.Record{File: file, ID: id},
		Snapshot: rev,
	}, res); err != nil {
		return nil, err
	}
	return nullable(res.Data), nil
}

// Update replaces a record and returns the recorded snapshot
func (c *Client) Update(ctx context.Context, file, id string, data any) (string, error) {
	value, err := marshalValue(data)
	if err != nil {
		return "", err
	}
	res := &responses.Snapshot{}
	err = c.t.call(ctx, handler.RouteUpdate, &requests.Update{
		Record: requests.Record{File: file, ID: id},
		Data:   value,
	}, res)
	return res.Snapshot, err
}

// Patch merge patches a record and returns its new value
func (c *Client) Patch(ctx context.Context, file, id string, patch []byte) (stdjson.RawMessage, string, error) {
	res := &responses.Record{}
	if err := c.t.call(ctx, handler.RoutePatch, &requests.Patch{
		Record: requests.Record{File: file, ID: id},
		Patch:  patch,
	}, res); err != nil {
		return nil, "", err
	}
	return nullable(res.Data), res.Snapshot, nil
}

func (c *Client) Delete(ctx context.Context, file, id string) (string, error) {
	res := &responses.Snapshot{}
	err := c.t.call(ctx, handler.RouteDelete, &requests.Delete{
		Record: requests.Record{File: file, ID: id},
	}, res)
	return res.Snapshot, err
}

func (c *Client) List(ctx context.Context, file, rev string) ([]string, error) {
	res := &responses.List{}
	err := c.t.call(ctx, handler.RouteList, &requests.List{File: file, Snapshot: rev}, res)
	return res.IDs, err
}

func (c *Client) History(ctx context.Context, file string, limit int) ([]snapshot.Snapshot, error) {
	res := &responses.History{}
	err := c.t.call(ctx, handler.RouteHistory, &requests.History{File: file, Limit: limit}, res)
	return res.Snapshots, err
}

func (c *Client) Diff(ctx context.Context, file, from, to string) ([]store.Change, error) {
	res := &responses.Diff{}
	err := c.t.call(ctx, handler.RouteDiff, &requests.Diff{File: file, From: from, To: to}, res)
	return res.Changes, err
}

func (c *Client) Head(ctx context.Context) (string, error) {
	res := &responses.Snapshot{}
	err := c.t.call(ctx, handler.RouteHead, &requests.Head{}, res)
	return res.Snapshot, err
}

// ShutDown closes idle connections
func (c *Client) ShutDown() {
	c.t.shutdown()
}

// nullable restores a stored null that decoding turned into a nil message
func nullable(v stdjson.RawMessage) stdjson.RawMessage {
	if v == nil {
		return stdjson.RawMessage("null")
	}
	return v
}

func marshalValue(data any) (stdjson.RawMessage, error) {
	if raw, ok := data.(stdjson.RawMessage); ok {
		return raw, nil
	}
	value, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(store.ErrSerialization, err.Error())
	}
	return value, nil
}
