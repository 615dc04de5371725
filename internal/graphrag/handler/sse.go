package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/kart-io/graphrag/pkg/utils/json"
)

var (
	sseDataPrefix = []byte("data: ")
	sseTerminator = []byte("\n\n")
	sseDone       = []byte("data: [DONE]\n\n")
)

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// sseWriter 写 data 帧，每帧后立即 flush。首个写错误之后的帧全部丢弃。
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
	err     error
}

func newSSEWriter(w io.Writer) *sseWriter {
	f, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: f}
}

func (s *sseWriter) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.writeRaw(sseDataPrefix, data, sseTerminator)
}

func (s *sseWriter) done() error {
	return s.writeRaw(sseDone)
}

func (s *sseWriter) writeRaw(parts ...[]byte) error {
	if s.err != nil {
		return s.err
	}
	for _, p := range parts {
		if _, err := s.w.Write(p); err != nil {
			s.err = errors.Join(errStreamClosed, err)
			return s.err
		}
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

var errStreamClosed = errors.New("sse stream closed")
