package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

var (
	errEmptyBody = errors.New("ingest: empty body")
	errTooLarge  = errors.New("ingest: payload exceeds size limit")
)

// peek makes sure the body yields at least one byte without losing it.
// Seekable bodies are rewound so the store can still replay them.
func peek(body io.Reader) (io.Reader, error) {
	if body == nil {
		return nil, errEmptyBody
	}

	var first [1]byte
	n, err := io.ReadFull(body, first[:])
	switch {
	case n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF):
		return nil, errEmptyBody
	case n == 0:
		return nil, fmt.Errorf("read body: %w", err)
	}

	if s, ok := body.(io.ReadSeeker); ok {
		if _, err := s.Seek(-1, io.SeekCurrent); err == nil {
			return s, nil
		}
	}
	return io.MultiReader(bytes.NewReader(first[:]), body), nil
}

// limitedBody fails reads once more than limit bytes were requested from it,
// so a lying Content-Length or an unknown size cannot overrun the policy.
type limitedBody interface {
	io.Reader
	exceeded() bool
}

func limitBody(r io.Reader, limit int64) limitedBody {
	l := &limitReader{r: r, remaining: limit}
	if s, ok := r.(io.ReadSeeker); ok {
		if start, err := s.Seek(0, io.SeekCurrent); err == nil {
			return &limitReadSeeker{limitReader: l, seeker: s, limit: limit, start: start}
		}
	}
	return l
}

type limitReader struct {
	r         io.Reader
	remaining int64
	over      bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.over = true
		return 0, errTooLarge
	}
	// Read one byte past the limit to detect overflow.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.over = true
		return n + int(l.remaining), errTooLarge
	}
	return n, err
}

func (l *limitReader) exceeded() bool {
	return l.over
}

// limitReadSeeker keeps the body seekable for retries.
type limitReadSeeker struct {
	*limitReader
	seeker io.Seeker
	limit  int64
	start  int64
}

func (l *limitReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := l.seeker.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	l.remaining = l.limit - (pos - l.start)
	l.over = false
	return pos, nil
}
