package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apitriage "github.com/kilianp07/crisistriage/api/triage"
	"github.com/kilianp07/crisistriage/auth"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/triage"
)

// apiClient talks to a running triage server.
type apiClient struct {
	http *resty.Client
}

// newAPIClient creates a client for baseURL. When conf names a token
// endpoint every request carries a client credentials bearer token.
func newAPIClient(baseURL string, conf auth.Conf) *apiClient {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")
	if conf.Enabled() {
		cred := auth.NewClientCred(conf)
		c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			tok, err := cred.Token(r.Context())
			if err != nil {
				return err
			}
			r.SetAuthToken(tok)
			return nil
		})
	}
	return &apiClient{http: c}
}

type apiError struct {
	Detail string `json:"detail"`
}

func (c *apiClient) post(ctx context.Context, path string, body, out any) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		if apiErr.Detail != "" {
			return fmt.Errorf("%s: %s", resp.Status(), apiErr.Detail)
		}
		return fmt.Errorf("%s", resp.Status())
	}
	return nil
}

func (c *apiClient) Submit(ctx context.Context, msg model.EmergencyMessage) (triage.Response, error) {
	var out triage.Response
	if err := c.post(ctx, "/api/triage", msg, &out); err != nil {
		return triage.Response{}, err
	}
	return out, nil
}

func (c *apiClient) Confirm(ctx context.Context, req apitriage.ConfirmRequest) (apitriage.ConfirmResponse, error) {
	var out apitriage.ConfirmResponse
	if err := c.post(ctx, "/api/confirm", req, &out); err != nil {
		return apitriage.ConfirmResponse{}, err
	}
	return out, nil
}

func (c *apiClient) CreateResource(ctx context.Context, r model.Resource) (model.Resource, error) {
	var out model.Resource
	if err := c.post(ctx, "/api/resources", r, &out); err != nil {
		return model.Resource{}, err
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
