package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/cognicore/utterlens/pkg/utterlens/generator"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestGenerateSuccess(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/",
		APIKey:  "sk-test",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				if req.URL.String() != "https://api.test/v1/chat/completions" {
					t.Errorf("unexpected url %s", req.URL)
				}
				if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
					t.Errorf("unexpected auth header %q", got)
				}
				var body chatRequest
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if body.Model != "gpt-test" || len(body.Messages) != 2 || body.Messages[1].Content != "生理痛をまとめて" {
					t.Errorf("unexpected payload %+v", body)
				}
				return respond(200, `{"choices":[{"message":{"role":"assistant","content":"{\"groups\":[]}"}}]}`)
			}),
		},
	}

	out, err := client.Generate(context.Background(), "生理痛をまとめて")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"groups":[]}` {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestEndpointKeepsFullPath(t *testing.T) {
	c := &Client{BaseURL: "https://api.test/v1/chat/completions"}
	if got := c.endpoint(); got != "https://api.test/v1/chat/completions" {
		t.Fatalf("endpoint = %s", got)
	}
}

func TestGenerateUnconfigured(t *testing.T) {
	for _, c := range []*Client{{Model: "m"}, {BaseURL: "https://api.test/v1"}} {
		_, err := c.Generate(context.Background(), "p")
		if !errors.Is(err, generator.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	cases := map[string]*http.Response{
		"api error":     respond(200, `{"error":{"message":"bad"}}`),
		"empty choices": respond(200, `{"choices":[]}`),
		"http status":   respond(500, `upstream down`),
		"bad json":      respond(200, `not json`),
	}
	for name, resp := range cases {
		resp := resp
		t.Run(name, func(t *testing.T) {
			client := &Client{
				BaseURL: "https://api.test/v1",
				Model:   "gpt-test",
				HTTPClient: &http.Client{
					Transport: roundTrip(func(*http.Request) *http.Response { return resp }),
				},
			}
			_, err := client.Generate(context.Background(), "p")
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, generator.ErrUnavailable) {
				t.Fatalf("transport failure reported as unavailable: %v", err)
			}
		})
	}
}
