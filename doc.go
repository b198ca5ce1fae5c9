// Package stateset provides a resilient HTTP client for the StateSet API.
//
// Every call runs through the same pipeline: the circuit breaker is
// consulted, the rate limiter is consulted, the request is sent, and the
// outcome is classified into a typed *Error. Retryable failures are retried
// with exponential backoff and jitter, honoring server Retry-After hints;
// once retries are exhausted the last error is wrapped in a RetryExhausted
// error that preserves the cause for errors.Is / errors.As.
//
// Basic usage:
//
//	client := stateset.New(
//		stateset.WithAPIKey(os.Getenv("STATESET_API_KEY")),
//		stateset.WithRateLimiter(120),
//	)
//
//	var order Order
//	if err := client.Get(ctx, "/v1/orders/ord_123", &order); err != nil {
//		var apiErr *stateset.Error
//		if errors.As(err, &apiErr) && apiErr.Kind == stateset.KindNotFound {
//			// handle missing order
//		}
//	}
//
// List endpoints paginate with opaque cursors. Stream hides the paging:
//
//	stream := stateset.NewStream[Order](client, "/v1/orders", nil)
//	for {
//		order, err := stream.Next(ctx)
//		if errors.Is(err, stateset.ErrStreamDone) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		process(order)
//	}
//
// The client is safe for concurrent use. The circuit breaker and rate
// limiter are shared across all goroutines using the same client, so a
// tripped breaker protects every caller.
package stateset
