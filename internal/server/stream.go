package server

import (
	"fmt"
	"net/http"
	"sync"

	"gocv.io/x/gocv"
)

// StreamHandler serves the most recent annotated frame as MJPEG.
type StreamHandler struct {
	mu      sync.Mutex
	jpeg    []byte
	updated chan struct{}
	closed  bool
}

// NewStreamHandler creates an empty StreamHandler.
func NewStreamHandler() *StreamHandler {
	return &StreamHandler{updated: make(chan struct{})}
}

// Show encodes frame as JPEG and wakes waiting clients.
func (h *StreamHandler) Show(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	h.publish(data)
	return nil
}

func (h *StreamHandler) publish(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.jpeg = data
	close(h.updated)
	h.updated = make(chan struct{})
}

// Latest returns the last encoded frame and a channel closed on the next one.
func (h *StreamHandler) Latest() ([]byte, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.jpeg, h.updated
}

// Close ends all streams.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.updated)
	}
}

// ServeHTTP streams MJPEG frames to the client.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		data, next := h.Latest()
		if len(data) > 0 {
			if err := writePart(w, data); err != nil {
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-next:
		}

		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if closed {
			return
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
