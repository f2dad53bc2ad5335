/*
Package tracing provides lightweight request tracing.

Every HTTP request gets a span. The trace is continued from the X-Trace-ID and
X-Span-ID request headers when present and echoed back in the response, so a
browser session can correlate its calls with server logs. Finished spans are
buffered and written to the log by a collector goroutine.

	tracer := tracing.New("playground", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
