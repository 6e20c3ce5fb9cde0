package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foomo/gitdb/pkg/handler"
	"github.com/foomo/gitdb/pkg/snapshot"
	"github.com/foomo/gitdb/pkg/store"
	"github.com/foomo/gitdb/responses"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocloud.dev/blob"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	l := zaptest.NewLogger(t)

	bucket, err := blob.OpenBucket(ctx, "mem://")
	require.NoError(t, err)
	engine, err := snapshot.OpenBlob(ctx, l, snapshot.NewBlobStorageFromBucket(bucket, ""))
	require.NoError(t, err)
	s := store.New(l, engine)
	t.Cleanup(func() { _ = s.Close() })

	server := httptest.NewServer(handler.NewHTTP(l, s, handler.WithPath("/db")))
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, server *httptest.Server, route, body string, reply any) int {
	t.Helper()
	resp, err := http.Post(server.URL+"/db/"+route, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if reply != nil {
		envelope := struct {
			Reply jsoniter.RawMessage `json:"reply"`
		}{}
		require.NoError(t, json.Unmarshal(data, &envelope), string(data))
		require.NoError(t, json.Unmarshal(envelope.Reply, reply), string(data))
	}
	return resp.StatusCode
}

func TestHTTP_Records(t *testing.T) {
	server := newTestServer(t)

	created := &responses.Snapshot{}
	status := post(t, server, "create", `{"file":"users.json","id":"user1","data":{"name":"Alice","age":30}}`, created)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, created.Snapshot)

	record := &responses.Record{}
	status = post(t, server, "read", `{"file":"users.json","id":"user1"}`, record)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name":"Alice","age":30}`, string(record.Data))

	patched := &responses.Record{}
	status = post(t, server, "patch", `{"file":"users.json","id":"user1","patch":{"age":31}}`, patched)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name":"Alice","age":31}`, string(patched.Data))

	status = post(t, server, "update", `{"file":"users.json","id":"user1","data":null}`, &responses.Snapshot{})
	require.Equal(t, http.StatusOK, status)

	record = &responses.Record{}
	status = post(t, server, "read", `{"file":"users.json","id":"user1","snapshot":"`+created.Snapshot+`"}`, record)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name":"Alice","age":30}`, string(record.Data))

	list := &responses.List{}
	status = post(t, server, "list", `{"file":"users.json"}`, list)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"user1"}, list.IDs)

	deleted := &responses.Snapshot{}
	status = post(t, server, "delete", `{"file":"users.json","id":"user1"}`, deleted)
	require.Equal(t, http.StatusOK, status)

	head := &responses.Snapshot{}
	status = post(t, server, "head", `{}`, head)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, deleted.Snapshot, head.Snapshot)

	history := &responses.History{}
	status = post(t, server, "history", `{"file":"users.json","limit":2}`, history)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, history.Snapshots, 2)
	assert.Equal(t, "Delete record user1", history.Snapshots[0].Message)

	diff := &responses.Diff{}
	status = post(t, server, "diff", `{"file":"users.json","from":"`+created.Snapshot+`"}`, diff)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, store.ChangeRemoved, diff.Changes[0].Kind)
}

func TestHTTP_NullAndScalarValues(t *testing.T) {
	server := newTestServer(t)

	for id, data := range map[string]string{"empty": "null", "age": "30", "ratio": "-1.5e2"} {
		status := post(t, server, "create", `{"file":"values.json","id":"`+id+`","data":`+data+`}`, &responses.Snapshot{})
		require.Equal(t, http.StatusOK, status, id)
	}

	resp, err := http.Post(server.URL+"/db/read", "application/json", bytes.NewBufferString(`{"file":"values.json","id":"empty"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"reply":{"id":"empty","data":null}}`, string(body))

	record := &responses.Record{}
	require.Equal(t, http.StatusOK, post(t, server, "read", `{"file":"values.json","id":"age"}`, record))
	assert.Equal(t, "30", string(record.Data))

	record = &responses.Record{}
	require.Equal(t, http.StatusOK, post(t, server, "read", `{"file":"values.json","id":"ratio"}`, record))
	assert.Equal(t, "-1.5e2", string(record.Data))

	list := &responses.List{}
	require.Equal(t, http.StatusOK, post(t, server, "list", `{"file":"values.json"}`, list))
	assert.ElementsMatch(t, []string{"empty", "age", "ratio"}, list.IDs)
}

func TestHTTP_Errors(t *testing.T) {
	server := newTestServer(t)
	require.Equal(t, http.StatusOK, post(t, server, "create", `{"file":"users.json","id":"user1","data":1}`, nil))

	tests := []struct {
		name   string
		route  string
		body   string
		status int
		code   int
	}{
		{"duplicate", "create", `{"file":"users.json","id":"user1","data":2}`, http.StatusConflict, responses.CodeDuplicateRecord},
		{"missing record", "read", `{"file":"users.json","id":"ghost"}`, http.StatusNotFound, responses.CodeRecordNotFound},
		{"missing snapshot", "read", `{"file":"users.json","id":"user1","snapshot":"HEAD~4"}`, http.StatusNotFound, responses.CodeSnapshotNotFound},
		{"invalid name", "list", `{"file":"../users.json"}`, http.StatusBadRequest, responses.CodeInvalidName},
		{"invalid json", "update", `{"file":`, http.StatusBadRequest, responses.CodeInvalidJSON},
		{"missing data", "create", `{"file":"users.json","id":"user2"}`, http.StatusBadRequest, responses.CodeInvalidJSON},
		{"missing update data", "update", `{"file":"users.json","id":"user1"}`, http.StatusBadRequest, responses.CodeInvalidJSON},
		{"missing patch", "patch", `{"file":"users.json","id":"user1"}`, http.StatusBadRequest, responses.CodeInvalidJSON},
		{"unknown route", "drop", `{}`, http.StatusNotFound, responses.CodeUnknownRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := &responses.Error{}
			assert.Equal(t, tt.status, post(t, server, tt.route, tt.body, reply))
			assert.Equal(t, tt.status, reply.Status)
			assert.Equal(t, tt.code, reply.Code)
			assert.NotEmpty(t, reply.Message)
		})
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/db/head")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
