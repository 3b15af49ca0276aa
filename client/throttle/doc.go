// Package throttle caps the rate of dispatched requests with a
// token bucket from [golang.org/x/time/rate].
//
// Most callers enable it through client.WithThrottle. It can also wrap
// any transport directly:
//
//	rt, err := throttle.NewRoundTripper(20, 5, nil, http.DefaultTransport)
//	hc := &http.Client{Transport: rt}
//
// A request that finds the bucket empty waits for a token, consuming
// exactly one. The wait ends early with [ErrWaitingFailed] when the
// request context is done first. A request whose context is already
// done fails with [ErrContextEnded] without touching the bucket.
package throttle
