package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"mentorgraph.org/internal/ids"
)

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

type client struct {
	http *http.Client
	url  string
}

// post runs one GraphQL operation, presenting refresh as the refreshToken cookie when set.
// It returns the decoded body and the refresh cookie the server set, if any.
func (c client) post(query string, vars map[string]any, refresh string) (gqlResponse, string, error) {
	body, _ := json.Marshal(map[string]any{"query": query, "variables": vars})
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return gqlResponse{}, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if refresh != "" {
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return gqlResponse{}, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return gqlResponse{}, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return gqlResponse{}, "", err
	}
	var cookie string
	for _, ck := range resp.Cookies() {
		if ck.Name == "refreshToken" {
			cookie = ck.Value
		}
	}
	return out, cookie, nil
}

func main() {
	base := os.Getenv("MENTORGRAPH_URL")
	if base == "" {
		base = "http://localhost:3001"
	}
	c := client{http: &http.Client{Timeout: 5 * time.Second}, url: base + "/graphql"}

	email := fmt.Sprintf("smoke-%s@example.org", ids.New())
	resp, t0, err := c.post(`mutation($n: String!, $e: String!, $p: String!) { signUp(name: $n, email: $e, password: $p) { accessToken } }`,
		map[string]any{"n": "Smoke Test", "e": email, "p": "smoke-password-1"}, "")
	if err != nil || len(resp.Errors) > 0 || t0 == "" {
		log.Fatalf("sign up: err=%v errors=%v cookie=%t", err, resp.Errors, t0 != "")
	}

	const refresh = `mutation { refreshAccessToken { accessToken } }`
	resp, t1, err := c.post(refresh, nil, t0)
	if err != nil || len(resp.Errors) > 0 || t1 == "" || t1 == t0 {
		log.Fatalf("refresh: err=%v errors=%v rotated=%t", err, resp.Errors, t1 != "" && t1 != t0)
	}

	resp, _, err = c.post(refresh, nil, t0)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
	if len(resp.Errors) == 0 || resp.Errors[0].Extensions["code"] != "UNAUTHENTICATED" {
		log.Fatalf("replayed refresh token was accepted: %v", resp.Errors)
	}

	resp, _, err = c.post(refresh, nil, t1)
	if err != nil {
		log.Fatalf("chain check: %v", err)
	}
	if len(resp.Errors) == 0 {
		log.Fatal("token chain was not revoked after replay")
	}

	fmt.Printf("auth smoke test passed: %s\n", email)
}
