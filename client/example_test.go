package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/httpfetch/client"
)

func ExampleBuild() {
	c, err := client.Build(
		client.WithConfig(client.Config{
			BaseURL: "https://api.example.com",
			Headers: map[string]string{"Accept": "application/json"},
		}),
		client.WithTimeout(10*time.Second),
		client.WithUserAgent("example/1.0"),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(c.Config().BaseURL)
	// Output: https://api.example.com
}

func ExampleParams() {
	fmt.Println(client.Params(map[string]any{"q": "go http", "page": 2}))
	fmt.Println(client.QueryDropFalsy.Encode(map[string]any{"q": "go", "page": 0, "draft": false}))
	// Output:
	// page=2&q=go+http
	// q=go
}

func ExampleClient_Get() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"gopher"}`))
	}))
	defer server.Close()

	c, err := client.Build(client.WithBaseURL(server.URL))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	env, err := c.Get(context.Background(), "/users/1", nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	out, _ := json.Marshal(env)
	fmt.Println(string(out))
	// Output: {"name":"gopher","responseStatus":200,"responseText":"OK"}
}

func ExampleAsResponseError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"email taken"}`))
	}))
	defer server.Close()

	c, _ := client.Build(client.WithBaseURL(server.URL))

	_, err := c.Post(context.Background(), "/users", map[string]string{"email": "a@b.c"})
	if respErr, ok := client.AsResponseError(err); ok {
		fmt.Println(respErr.Envelope.Status, respErr.Envelope.Message)
	}
	// Output: 409 email taken
}

func ExampleClient_Dispatch() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c, _ := client.Build(client.WithBaseURL(server.URL))

	err := c.Dispatch(context.Background(), http.MethodDelete, "/users/9", nil, client.Callbacks{
		SetLoading: func(b bool) { fmt.Println("loading:", b) },
		OnError:    func(err error) { fmt.Println("failed") },
	})
	fmt.Println("returned:", err)
	// Output:
	// loading: true
	// loading: false
	// failed
	// returned: <nil>
}

func ExampleInto() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"name":"gopher"}`))
	}))
	defer server.Close()

	c, _ := client.Build(client.WithBaseURL(server.URL))

	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	u, err := client.Into[user](c.Get(context.Background(), "/users/1", nil))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("%d %s\n", u.ID, u.Name)
	// Output: 1 gopher
}
