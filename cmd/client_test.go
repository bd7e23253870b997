package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apitriage "github.com/kilianp07/crisistriage/api/triage"
	"github.com/kilianp07/crisistriage/auth"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/triage"
)

func TestAPIClient_SubmitWithBearerToken(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	}))
	defer idp.Close()

	var gotAuth string
	var gotMsg model.EmergencyMessage
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotMsg)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(triage.Response{RequestID: "req-1", Status: "processed"})
	}))
	defer api.Close()

	c := newAPIClient(api.URL+"/", auth.Conf{ClientID: "cli", ClientSecret: "s", TokenURL: idp.URL})
	resp, err := c.Submit(context.Background(), model.EmergencyMessage{Message: "help"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "help", gotMsg.Message)
}

func TestAPIClient_ErrorDetail(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"request r-9 not found"}`))
	}))
	defer api.Close()

	c := newAPIClient(api.URL, auth.Conf{})
	_, err := c.Confirm(context.Background(), apitriage.ConfirmRequest{RequestID: "r-9", Confirmed: true, DispatcherID: "d"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request r-9 not found")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
