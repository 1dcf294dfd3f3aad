package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBase(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ws://localhost:8000/ws", want: "http://localhost:8000"},
		{in: "wss://chat.example/ws", want: "https://chat.example"},
		{in: "/ws", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := HTTPBase(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPClientStatusAndAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/status":
			json.NewEncoder(w).Encode(ServerStatus{Status: "online", Service: "YAAN", Version: "1.0", Connections: 2})
		case "/api/command":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			json.NewEncoder(w).Encode(commandResult{Success: true, Response: "echo " + r.URL.Query().Get("text")})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/")
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "online", st.Status)
	assert.Equal(t, 2, st.Connections)

	reply, err := c.Ask(context.Background(), "what is 1 + 1")
	require.NoError(t, err)
	assert.Equal(t, "echo what is 1 + 1", reply)
}

func TestHTTPClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/command" {
			json.NewEncoder(w).Encode(commandResult{Success: false, Error: "boom"})
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Status(context.Background())
	assert.ErrorContains(t, err, "503")

	_, err = c.Ask(context.Background(), "hi")
	assert.ErrorContains(t, err, "boom")
}
