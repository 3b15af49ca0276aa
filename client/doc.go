// Package client provides the core implementation of the request
// dispatcher built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options. Defaults
// applied to every request are supplied once, up front, through a
// [Config]:
//
//	c, err := client.Build(
//		client.WithConfig(client.Config{
//			BaseURL:       "https://api.example.com",
//			Headers:       map[string]string{"Accept": "application/json"},
//			Authorization: "Bearer " + token,
//		}),
//		client.WithTimeout(10 * time.Second),
//	)
//
// # Making Requests
//
// Each verb delegates to [Client.Fetch]. Relative URLs are joined to the
// configured base URL, struct and map bodies are sent as JSON:
//
//	env, err := c.Post(ctx, "/users", newUser,
//		client.WithQuery(map[string]any{"notify": true}),
//	)
//
// A successful call returns an [Envelope]. A failed one returns a
// [ResponseError] whose Envelope carries the status and a message:
//
//	if respErr, ok := client.AsResponseError(err); ok {
//		log.Println(respErr.Envelope.Status, respErr.Envelope.Message)
//	}
//
// # Callbacks
//
// [Client.Dispatch] delivers the same outcome through [Callbacks] for
// callers that track loading state:
//
//	err := c.Dispatch(ctx, http.MethodGet, "/users", nil, client.Callbacks{
//		SetLoading: func(b bool) { spinner.Set(b) },
//		OnResponse: render,
//		OnError:    notify,
//	})
//
// # Query Strings
//
// Query serialization is selected per client with [WithQueryPolicy].
// [QueryEncodeAll] is the default; [Params] exposes it standalone.
package client
