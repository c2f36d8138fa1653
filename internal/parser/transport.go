package parser

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var errBodyTooLarge = errors.New("feed body exceeds configured limit")

// bodyTooLargeError wraps errBodyTooLarge with the observed/allowed sizes.
type bodyTooLargeError struct {
	limit int64
}

func (e *bodyTooLargeError) Error() string {
	return fmt.Sprintf("%v: limit %d bytes", errBodyTooLarge, e.limit)
}

func (e *bodyTooLargeError) Unwrap() error { return errBodyTooLarge }

// boundedBodyTransport caps response bodies at limit bytes, checking
// Content-Length up front and truncating the stream as a backstop against
// servers that lie about it.
type boundedBodyTransport struct {
	base  http.RoundTripper
	limit int64
}

func (t *boundedBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.base
	if transport == nil {
		transport = http.DefaultTransport
	}

	resp, err := transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if t.limit <= 0 {
		return resp, nil
	}

	if resp.ContentLength > 0 && resp.ContentLength > t.limit {
		_ = resp.Body.Close()
		return nil, &bodyTooLargeError{limit: t.limit}
	}

	resp.Body = newLimitedReadCloser(resp.Body, t.limit)
	return resp, nil
}

type limitedReadCloser struct {
	reader    io.ReadCloser
	remaining int64
	err       error
	limit     int64
}

func newLimitedReadCloser(rc io.ReadCloser, limit int64) *limitedReadCloser {
	return &limitedReadCloser{reader: rc, remaining: limit, limit: limit}
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if l.remaining <= 0 {
		l.err = &bodyTooLargeError{limit: l.limit}
		return 0, l.err
	}

	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}

	n, err := l.reader.Read(p)
	if int64(n) <= l.remaining {
		l.remaining -= int64(n)
		l.err = err
		return n, err
	}

	n = int(l.remaining)
	l.remaining = 0
	l.err = &bodyTooLargeError{limit: l.limit}
	return n, l.err
}

func (l *limitedReadCloser) Close() error {
	return l.reader.Close()
}
