package client

import (
	"context"
)

// Callbacks receive the outcome of [Client.Dispatch] instead of it being
// returned. Every field is optional.
type Callbacks struct {
	// SetLoading is called with true before the round trip and with
	// false exactly once after it, before OnResponse or OnError.
	SetLoading func(loading bool)
	// OnResponse receives the envelope of both successful and failed
	// responses. It is not called for transport failures.
	OnResponse func(env *Envelope)
	// OnError receives any failure, including transport failures.
	// It takes precedence over OnResponse for failed calls. For failed
	// responses, [AsResponseError] recovers the Envelope from err.
	OnError func(err error)
}

// Dispatch runs [Client.Fetch] and delivers the outcome through cb.
// It returns an error only when no callback accepted it: a failure
// with no OnError, or a transport failure with no OnError.
func (c *Client) Dispatch(ctx context.Context, method, rawURL string, body any, cb Callbacks, opts ...RequestOption) error {
	env, err := withLoading(cb.SetLoading, func() (*Envelope, error) {
		return c.Fetch(ctx, method, rawURL, body, opts...)
	})

	switch {
	case err != nil && cb.OnError != nil:
		cb.OnError(err)
		return nil

	case cb.OnResponse != nil:
		if err == nil {
			cb.OnResponse(env)
			return nil
		}
		if respErr, ok := AsResponseError(err); ok {
			cb.OnResponse(respErr.Envelope)
			return nil
		}
		return err

	default:
		return err
	}
}

func withLoading(set func(bool), fn func() (*Envelope, error)) (*Envelope, error) {
	if set == nil {
		return fn()
	}

	set(true)
	defer set(false)

	return fn()
}
