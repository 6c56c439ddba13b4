package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `{
	"type":"FeatureCollection",
	"metadata":{"generated":1700000000000,"count":3},
	"features":[
		{"type":"Feature","id":"us1","properties":{"mag":5.2,"place":"Tokyo","time":1000,"url":"https://example.test/us1"},"geometry":{"type":"Point","coordinates":[139.7,35.7,10]}},
		{"type":"Feature","id":"nc2","properties":{"mag":2.1,"place":"Reno","time":2000},"geometry":{"type":"Point","coordinates":[-119.8,39.5,3]}},
		{"type":"Feature","properties":{"mag":4.0,"place":"missing id","time":3000}}
	]
}`

func TestUSGSClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	features, err := NewUSGSClient(5*time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, features, 3)
}

func TestUSGSClient_MistypedRecordDoesNotFailPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[
			{"id":"good1","properties":{"mag":2.5,"place":"Hilo"},"geometry":{"coordinates":[-155.1,19.7,5]}},
			{"id":"bad2","properties":{"mag":"4.5","place":"Lima"},"geometry":{"coordinates":"x"}},
			{"id":"good3","properties":{"mag":6.0,"place":"Suva"},"geometry":{"coordinates":[178.4,-18.1,550]}}
		]}`))
	}))
	defer srv.Close()

	features, err := NewUSGSClient(5*time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, features, 3)

	events, dropped := NormalizeAll(features)
	assert.Zero(t, dropped)
	require.Len(t, events, 3)
	assert.Equal(t, "bad2", events[1].ID)
	assert.Nil(t, events[1].Magnitude)
	assert.Equal(t, "Lima", events[1].Place)
	assert.Zero(t, events[1].Longitude)
	require.NotNil(t, events[2].Magnitude)
	assert.Equal(t, 6.0, *events[2].Magnitude)
}

func TestUSGSClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewUSGSClient(5*time.Second).Fetch(context.Background(), srv.URL)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusServiceUnavailable, netErr.StatusCode)
	assert.Equal(t, "Network error: 503", err.Error())
	assert.False(t, errors.Is(err, ErrCancelled))
}

func TestUSGSClient_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	_, err := NewUSGSClient(5*time.Second).Fetch(context.Background(), srv.URL)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.StatusCode)
}

func TestUSGSClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewUSGSClient(time.Second).Fetch(context.Background(), url)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.False(t, errors.Is(err, ErrCancelled))
}

func TestUSGSClient_CancelledIsNotNetworkError(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := NewUSGSClient(5*time.Second).Fetch(ctx, srv.URL)
		errCh <- err
	}()

	<-started
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, ErrCancelled)
	var netErr *NetworkError
	assert.False(t, errors.As(err, &netErr))
}

func TestUSGSClient_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewUSGSClient(20*time.Millisecond).Fetch(context.Background(), srv.URL)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.False(t, errors.Is(err, ErrCancelled))
}
