package handler

import (
	"context"
	stdjson "encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foomo/gitdb/pkg/metrics"
	"github.com/foomo/gitdb/pkg/store"
	"github.com/foomo/gitdb/requests"
	"github.com/foomo/gitdb/responses"
	httputils "github.com/foomo/keel/utils/net/http"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const sourceWebserver = "webserver"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	HTTP struct {
		l     *zap.Logger
		path  string
		store *store.Store
	}
	HTTPOption func(*HTTP)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewHTTP returns a handler serving the record routes below path
func NewHTTP(l *zap.Logger, s *store.Store, opts ...HTTPOption) http.Handler {
	inst := &HTTP{
		l:     l.Named("http"),
		path:  "/gitdb",
		store: s,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithPath(v string) HTTPOption {
	return func(o *HTTP) {
		o.path = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputils.ServerError(h.l, w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if r.Body == nil {
		httputils.BadRequestServerError(h.l, w, r, errors.New("empty request body"))
		return
	}

	bytes, err := io.ReadAll(r.Body)
	if err != nil {
		httputils.BadRequestServerError(h.l, w, r, errors.Wrap(err, "failed to read incoming request"))
		return
	}

	route := Route(strings.TrimPrefix(r.URL.Path, h.path+"/"))
	status, reply, err := h.handleRequest(r.Context(), route, bytes, sourceWebserver)
	if err != nil {
		httputils.ServerError(h.l, w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(reply)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) handleRequest(ctx context.Context, route Route, jsonBytes []byte, source string) (int, []byte, error) {
	start := time.Now()

	reply := h.executeRequest(ctx, route, jsonBytes)
	status := http.StatusOK
	result := "success"
	if e, ok := reply.(*responses.Error); ok {
		status = e.Status
		result = "error"
	}

	metrics.ServiceRequestCounter.WithLabelValues(string(route), result, source).Inc()
	metrics.ServiceRequestDuration.WithLabelValues(string(route), result, source).Observe(time.Since(start).Seconds())

	replyBytes, err := h.encodeReply(reply)
	return status, replyBytes, err
}

func (h *HTTP) executeRequest(ctx context.Context, route Route, jsonBytes []byte) any {
	var (
		reply             any
		apiErr            error
		jsonErr           error
		processIfJSONIsOk = func(err error, processingFunc func()) {
			if err != nil {
				jsonErr = err
				return
			}
			processingFunc()
		}
	)

	switch route {
	case RouteCreate:
		req := &requests.Create{}
		processIfJSONIsOk(decode(jsonBytes, req, "data", &req.Data), func() {
			var rev string
			rev, apiErr = h.store.Create(ctx, req.File, req.ID, req.Data)
			reply = &responses.Snapshot{Snapshot: rev}
		})
	case RouteRead:
		req := &requests.Read{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, req), func() {
			var value []byte
			value, apiErr = h.store.Read(ctx, req.File, req.ID, req.Snapshot)
			reply = &responses.Record{ID: req.ID, Data: value, Snapshot: req.Snapshot}
		})
	case RouteUpdate:
		req := &requests.Update{}
		processIfJSONIsOk(decode(jsonBytes, req, "data", &req.Data), func() {
			var rev string
			rev, apiErr = h.store.Update(ctx, req.File, req.ID, req.Data)
			reply = &responses.Snapshot{Snapshot: rev}
		})
	case RoutePatch:
		req := &requests.Patch{}
		processIfJSONIsOk(decode(jsonBytes, req, "patch", &req.Patch), func() {
			var value []byte
			var rev string
			value, rev, apiErr = h.store.Patch(ctx, req.File, req.ID, req.Patch)
			reply = &responses.Record{ID: req.ID, Data: value, Snapshot: rev}
		})
	case RouteDelete:
		req := &requests.Delete{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, req), func() {
			var rev string
			rev, apiErr = h.store.Delete(ctx, req.File, req.ID)
			reply = &responses.Snapshot{Snapshot: rev}
		})
	case RouteList:
		req := &requests.List{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, req), func() {
			var ids []string
			ids, apiErr = h.store.List(ctx, req.File, req.Snapshot)
			reply = &responses.List{IDs: ids}
		})
	case RouteHistory:
		req := &requests.History{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, req), func() {
			res := &responses.History{}
			res.Snapshots, apiErr = h.store.History(ctx, req.File, req.Limit)
			reply = res
		})
	case RouteDiff:
		req := &requests.Diff{}
		processIfJSONIsOk(json.Unmarshal(jsonBytes, req), func() {
			res := &responses.Diff{}
			res.Changes, apiErr = h.store.Diff(ctx, req.File, req.From, req.To)
			reply = res
		})
	case RouteHead:
		processIfJSONIsOk(nil, func() {
			var rev string
			rev, apiErr = h.store.Head(ctx)
			reply = &responses.Snapshot{Snapshot: rev}
		})
	default:
		return responses.NewStatusError(http.StatusNotFound, responses.CodeUnknownRoute, "unknown handler: "+string(route))
	}

	// error handling
	if jsonErr != nil {
		h.l.Debug("could not read incoming json", zap.Error(jsonErr))
		return responses.NewStatusError(http.StatusBadRequest, responses.CodeInvalidJSON, "could not read incoming json "+jsonErr.Error())
	} else if apiErr != nil {
		return h.errorReply(route, apiErr)
	}

	return reply
}

// errorReply maps store errors onto statuses and codes
func (h *HTTP) errorReply(route Route, err error) *responses.Error {
	var (
		status int
		code   int
	)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		status, code = http.StatusNotFound, responses.CodeRecordNotFound
	case errors.Is(err, store.ErrSnapshotNotFound):
		status, code = http.StatusNotFound, responses.CodeSnapshotNotFound
	case errors.Is(err, store.ErrDuplicateRecord):
		status, code = http.StatusConflict, responses.CodeDuplicateRecord
	case errors.Is(err, store.ErrInvalidName):
		status, code = http.StatusBadRequest, responses.CodeInvalidName
	case errors.Is(err, store.ErrInconsistent):
		status, code = http.StatusInternalServerError, responses.CodeInconsistent
	case errors.Is(err, store.ErrSerialization):
		status, code = http.StatusInternalServerError, responses.CodeSerialization
	default:
		status, code = http.StatusInternalServerError, responses.CodeInternal
	}
	if status >= http.StatusInternalServerError {
		h.l.Error("an API error occurred", zap.String("route", string(route)), zap.Error(err))
	}
	return responses.NewStatusError(status, code, err.Error())
}

// encodeReply takes an interface and encodes it as JSON
// it returns the resulting JSON and a marshalling error
func (h *HTTP) encodeReply(reply any) (bytes []byte, err error) {
	bytes, err = json.Marshal(map[string]any{
		"reply": reply,
	})
	if err != nil {
		h.l.Error("could not encode reply", zap.Error(err))
	}
	return
}

// decode unmarshals a request whose payload field is required. An explicit
// null payload is kept as the JSON null literal.
func decode(jsonBytes []byte, v any, field string, payload *stdjson.RawMessage) error {
	if err := json.Unmarshal(jsonBytes, v); err != nil {
		return err
	}
	if jsoniter.Get(jsonBytes, field).ValueType() == jsoniter.InvalidValue {
		return errors.Errorf("missing %s", field)
	}
	if *payload == nil {
		*payload = stdjson.RawMessage("null")
	}
	return nil
}
