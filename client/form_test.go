package client_test

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adamwoolhether/httpfetch/client"
)

func TestForm_SentTwice(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		mr := multipart.NewReader(r.Body, params["boundary"])
		var parts []string
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b, _ := io.ReadAll(p)
			parts = append(parts, p.FormName()+"="+string(b))
		}
		bodies = append(bodies, strings.Join(parts, ","))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c, _ := client.Build(client.WithBaseURL(server.URL))

	form := client.NewForm()
	if err := form.AddField("a", "1"); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if _, err := c.Post(t.Context(), "/", form); err != nil {
			t.Fatalf("exp no error, got: %v", err)
		}
	}

	if len(bodies) != 2 || bodies[0] != "a=1" || bodies[1] != "a=1" {
		t.Errorf("exp identical multipart bodies, got %q", bodies)
	}

	if err := form.AddField("b", "2"); !errors.Is(err, client.ErrFormSent) {
		t.Error("exp writes after sending to fail")
	}
}
