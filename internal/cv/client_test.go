package cv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yabtel/telemetria/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.Config{
		CVBaseURL:  srv.URL,
		CVUsername: "operator",
		CVPassword: "secret",
		CVAPIToken: "token-1",
		CVTimeout:  5 * time.Second,
	}, zap.NewNop())
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "login", r.URL.Query().Get("f"))
		assert.Equal(t, "function", r.URL.Query().Get("requestMode"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "operator", r.PostForm.Get("username"))
		// md5("secret_panaccess")
		assert.Equal(t, "bb6b2e8e98fa3b2bb0c9c680c0ae81f4", r.PostForm.Get("password"))
		assert.Equal(t, "token-1", r.PostForm.Get("apiToken"))

		w.Write([]byte(`{"success":true,"answer":"sess-42"}`))
	})

	sess, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-42", sess.ID)
}

func TestLoginObjectAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"answer":{"sessionId":"sess-42"}}`))
	})

	sess, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-42", sess.ID)
}

func TestLoginRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"errorMessage":"bad credentials"}`))
	})

	_, err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrAuth)
}

func TestListTelemetryRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getListOfTelemetryRecords", r.URL.Query().Get("f"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "sess-42", r.PostForm.Get("sessionId"))
		assert.Equal(t, "0", r.PostForm.Get("offset"))
		assert.Equal(t, "2", r.PostForm.Get("limit"))
		assert.Equal(t, "recordId", r.PostForm.Get("orderBy"))
		assert.Equal(t, "DESC", r.PostForm.Get("orderDir"))

		w.Write([]byte(`{"success":true,"answer":{"telemetryRecordEntries":[
			{"recordId":10,"actionId":7,"timestamp":"2026-01-02 13:00:00"},
			{"recordId":9,"actionId":8,"timestamp":"2026-01-02 12:59:00"}
		]}}`))
	})

	entries, err := client.ListTelemetryRecords(context.Background(), Session{ID: "sess-42"}, 0, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(10), *entries[0].RecordID)
	assert.Equal(t, 7, *entries[0].ActionID)
}

func TestListTelemetryRecordsUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListTelemetryRecords(context.Background(), Session{ID: "s"}, 0, 10)
	require.ErrorIs(t, err, ErrUpstream)
}

func TestListTelemetryRecordsBadBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.ListTelemetryRecords(context.Background(), Session{ID: "s"}, 0, 10)
	require.ErrorIs(t, err, ErrDecode)
}
