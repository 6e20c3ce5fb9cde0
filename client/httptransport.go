package client

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/foomo/gitdb/pkg/handler"
	"github.com/foomo/gitdb/pkg/store"
	"github.com/foomo/gitdb/responses"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	httpTransport struct {
		client   *http.Client
		endpoint string
	}
	envelope struct {
		Reply jsoniter.RawMessage `json:"reply"`
	}
)

// NewHTTPTransport will create a new http transport for the given server and client.
// Caution: the provided server url is not validated!
func NewHTTPTransport(server string, client *http.Client) transport {
	return &httpTransport{
		endpoint: server,
		client:   client,
	}
}

func (ht *httpTransport) shutdown() {
	ht.client.CloseIdleConnections()
}

func (ht *httpTransport) call(ctx context.Context, route handler.Route, request any, response any) error {
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		ht.endpoint+"/"+string(route),
		bytes.NewBuffer(requestBytes),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	httpResponse, err := ht.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to call %s", route)
	}
	defer httpResponse.Body.Close()

	responseBytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	reply := envelope{}
	if err := json.Unmarshal(responseBytes, &reply); err != nil || len(reply.Reply) == 0 {
		return errors.Errorf("unexpected %d reply from %s: %s", httpResponse.StatusCode, route, bytes.TrimSpace(responseBytes))
	}
	if httpResponse.StatusCode != http.StatusOK {
		e := responses.Error{}
		if err := json.Unmarshal(reply.Reply, &e); err != nil {
			return errors.Errorf("non 200 reply from %s: %d", route, httpResponse.StatusCode)
		}
		return toStoreError(e)
	}
	return json.Unmarshal(reply.Reply, response)
}

// toStoreError maps error codes back onto the store sentinels
func toStoreError(e responses.Error) error {
	var sentinel error
	switch e.Code {
	case responses.CodeRecordNotFound:
		sentinel = store.ErrRecordNotFound
	case responses.CodeDuplicateRecord:
		sentinel = store.ErrDuplicateRecord
	case responses.CodeSnapshotNotFound:
		sentinel = store.ErrSnapshotNotFound
	case responses.CodeInvalidName:
		sentinel = store.ErrInvalidName
	case responses.CodeSerialization:
		sentinel = store.ErrSerialization
	case responses.CodeInconsistent:
		sentinel = store.ErrInconsistent
	default:
		return e
	}
	return errors.Wrap(sentinel, e.Message)
}
