package handlers_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	controllers "reporter/src/api/controllers"
	handlers "reporter/src/api/handlers"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type dispatchStub struct {
	err        error
	calls      int
	onDispatch func(ctx context.Context) error
}

func (d *dispatchStub) DispatchReports(ctx context.Context) error {
	d.calls++
	if d.onDispatch != nil {
		return d.onDispatch(ctx)
	}
	return d.err
}

func newTestServer(controller controllers.DispatchControllerI) *httptest.Server {
	handler := &handlers.Handler{Controller: controller, Logger: testLogger()}
	router := chi.NewRouter()
	router.Get("/alive", handlers.Healthcheck)
	router.Route("/api/send-email", func(r chi.Router) {
		r.Post("/send", handler.SendEmailReports)
	})
	return httptest.NewServer(router)
}

func postSend(t *testing.T, server *httptest.Server) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(server.URL+"/api/send-email/send", "application/json", nil)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func TestSendEmailReportsSuccess(t *testing.T) {
	stub := &dispatchStub{}
	server := newTestServer(stub)
	defer server.Close()

	resp, body := postSend(t, server)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Email send successfully to users"}`, body)
	assert.Equal(t, 1, stub.calls)
}

func TestSendEmailReportsEmptyStore(t *testing.T) {
	server := newTestServer(&dispatchStub{err: controllers.ErrNoEntries})
	defer server.Close()

	resp, body := postSend(t, server)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Email Not sent"}`, body)
}

func TestSendEmailReportsUncaughtFailure(t *testing.T) {
	server := newTestServer(&dispatchStub{err: fmt.Errorf("dispatch failed: boom")})
	defer server.Close()

	resp, body := postSend(t, server)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"message":"dispatch failed: boom"}`, body)
}

// A caller dropping the connection must not abort the run; the dispatch
// context stays alive and outbound calls keep succeeding.
func TestSendEmailReportsSurvivesClientDisconnect(t *testing.T) {
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer host.Close()

	var dispatchCtxErr error
	var hostCallErr error
	stub := &dispatchStub{onDispatch: func(ctx context.Context) error {
		dispatchCtxErr = ctx.Err()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, host.URL, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		hostCallErr = err
		if err == nil {
			resp.Body.Close()
		}
		return nil
	}}
	handler := &handlers.Handler{Controller: stub, Logger: testLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/send-email/send", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()

	handler.SendEmailReports(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 1, stub.calls)
	assert.NoError(t, dispatchCtxErr, "dispatch context must not inherit request cancellation")
	assert.NoError(t, hostCallErr, "outbound calls must keep working after the caller is gone")
}

func TestHealthcheck(t *testing.T) {
	server := newTestServer(&dispatchStub{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/alive")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Im alive!", string(body))
}
