package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout-ai/homescout/pkg/config"
)

func newTestClient(t *testing.T, baseURL string) *RESTClient {
	t.Helper()
	client, err := NewRESTClient(&config.Config{
		TelephonyBaseURL:       baseURL,
		TelephonyAPIKey:        "key",
		TelephonyAssistantID:   "asst-1",
		TelephonyPhoneNumberID: "pn-1",
	})
	require.NoError(t, err)
	client.pollInterval = 5 * time.Millisecond
	client.pollDeadline = 500 * time.Millisecond
	return client
}

func TestNewRESTClient(t *testing.T) {
	t.Run("missing identifiers rejected", func(t *testing.T) {
		_, err := NewRESTClient(&config.Config{TelephonyAPIKey: "key"})
		assert.ErrorIs(t, err, config.ErrMissingKey)
	})
}

func TestUpdateAssistant(t *testing.T) {
	t.Run("patches prompt and first message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/assistant/asst-1", r.URL.Path)
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "Bom dia!", payload["firstMessage"])
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		err := newTestClient(t, srv.URL).UpdateAssistant(context.Background(), "You negotiate rentals.", "Bom dia!")

		assert.NoError(t, err)
	})

	t.Run("non-2xx is an APIError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"bad payload"}`))
		}))
		defer srv.Close()

		err := newTestClient(t, srv.URL).UpdateAssistant(context.Background(), "p", "f")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
}

func TestCreateCall(t *testing.T) {
	t.Run("returns call id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/call/phone", r.URL.Path)

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "asst-1", payload["assistantId"])
			assert.Equal(t, "pn-1", payload["phoneNumberId"])
			assert.Equal(t, map[string]any{"number": "+351910000000"}, payload["customer"])

			w.Write([]byte(`{"id":"call-42"}`))
		}))
		defer srv.Close()

		id, err := newTestClient(t, srv.URL).CreateCall(context.Background(), "+351910000000")

		require.NoError(t, err)
		assert.Equal(t, "call-42", id)
	})

	t.Run("missing id fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).CreateCall(context.Background(), "+351910000000")

		assert.Error(t, err)
	})
}

func TestWaitForCall(t *testing.T) {
	t.Run("polls until ended with summary", func(t *testing.T) {
		var polls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch polls.Add(1) {
			case 1:
				w.Write([]byte(`{"id":"call-42","status":"in-progress"}`))
			case 2:
				w.Write([]byte(`{"id":"call-42","status":"ended"}`))
			default:
				w.Write([]byte(`{"id":"call-42","status":"ended","analysis":{"summary":"Seller accepted viewing."}}`))
			}
		}))
		defer srv.Close()

		state, err := newTestClient(t, srv.URL).WaitForCall(context.Background(), "call-42")

		require.NoError(t, err)
		assert.Equal(t, StatusEnded, state.Status)
		assert.Equal(t, "Seller accepted viewing.", state.Analysis.Summary)
		assert.GreaterOrEqual(t, polls.Load(), int32(3))
	})

	t.Run("failed call returns immediately", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"call-42","status":"failed"}`))
		}))
		defer srv.Close()

		state, err := newTestClient(t, srv.URL).WaitForCall(context.Background(), "call-42")

		require.NoError(t, err)
		assert.Equal(t, StatusFailed, state.Status)
	})

	t.Run("deadline produces ErrCallTimeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"call-42","status":"in-progress"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).WaitForCall(context.Background(), "call-42")

		assert.ErrorIs(t, err, ErrCallTimeout)
	})

	t.Run("transient poll errors tolerated", func(t *testing.T) {
		var polls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if polls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"id":"call-42","status":"ended","analysis":{"summary":"ok"}}`))
		}))
		defer srv.Close()

		state, err := newTestClient(t, srv.URL).WaitForCall(context.Background(), "call-42")

		require.NoError(t, err)
		assert.Equal(t, StatusEnded, state.Status)
	})
}
