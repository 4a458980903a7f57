package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() booking.Request {
	return booking.Request{
		FullName: "Jane Doe",
		Email:    "jane@brand.com",
		Category: booking.CategoryTech,
		Plan:     booking.PlanGrowth,
		Message:  "Need hero shots",
	}
}

func newTestSink(t *testing.T, handler http.HandlerFunc) *RESTSink {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	s, err := NewRESTSink(RESTConfig{BaseURL: ts.URL + "/", APIKey: "anon-key", Table: "bookings"}, logging.Default())
	require.NoError(t, err)
	return s
}

func TestNewRESTSink_MissingEndpoint(t *testing.T) {
	_, err := NewRESTSink(RESTConfig{BaseURL: "  "}, nil)
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestRESTSink_Insert_Success(t *testing.T) {
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/bookings", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var rows []map[string]string
		require.NoError(t, json.Unmarshal(body, &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, map[string]string{
			"full_name": "Jane Doe",
			"email":     "jane@brand.com",
			"category":  "Tech & Gadgets",
			"plan":      "Brand Growth ($149)",
			"message":   "Need hero shots",
		}, rows[0])

		w.WriteHeader(http.StatusCreated)
	})

	assert.NoError(t, s.Insert(context.Background(), sampleRequest()))
}

func TestRESTSink_Insert_RemoteRejection(t *testing.T) {
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":"P0001","message":"quota exceeded","details":null}`))
	})

	err := s.Insert(context.Background(), sampleRequest())
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "quota exceeded", remote.Message)
	assert.Equal(t, http.StatusTooManyRequests, remote.Status)
	assert.Equal(t, "quota exceeded", Message(err))
}

func TestRESTSink_Insert_Unauthorized_PlainBody(t *testing.T) {
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	})

	err := s.Insert(context.Background(), sampleRequest())
	assert.Equal(t, "invalid api key", Message(err))
}

func TestRESTSink_Insert_LongBodyTruncatedOnRuneBoundary(t *testing.T) {
	body := "a" + strings.Repeat("é", 200)
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	})

	err := s.Insert(context.Background(), sampleRequest())
	msg := Message(err)
	assert.True(t, utf8.ValidString(msg))
	assert.LessOrEqual(t, len(msg), maxErrorBody)
	assert.Len(t, msg, maxErrorBody-1)
	assert.True(t, strings.HasPrefix(body, msg))
}

func TestRESTSink_Insert_ErrorWithoutMessage(t *testing.T) {
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{}`))
	})

	err := s.Insert(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Empty(t, Message(err))
}

func TestRESTSink_Insert_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := ts.URL
	ts.Close()

	s, err := NewRESTSink(RESTConfig{BaseURL: base}, nil)
	require.NoError(t, err)

	err = s.Insert(context.Background(), sampleRequest())
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, networkFailure, remote.Message)
	assert.Zero(t, remote.Status)
}

func TestRESTSink_Insert_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	s, err := NewRESTSink(RESTConfig{BaseURL: ts.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	err = s.Insert(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, networkFailure, Message(err))
}

func TestMessage(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.Empty(t, Message(&RemoteError{}))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "sink: insert failed", (&RemoteError{}).Error())
}
