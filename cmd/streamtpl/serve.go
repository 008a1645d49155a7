package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bjaus/streamtpl"
)

type server struct {
	pool        *streamtpl.Pool
	reg         *streamtpl.Registry
	src         streamtpl.Source
	contentType string
}

func newServer(pool *streamtpl.Pool, reg *streamtpl.Registry, src streamtpl.Source, contentType string) *server {
	return &server{pool: pool, reg: reg, src: src, contentType: contentType}
}

func (s *server) run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/status", s.handleStatus)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Printf("serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handlePage streams the template, flushing after every chunk so the client
// sees output as it is produced.
func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", s.contentType)
	if _, err := s.pool.Stream(r.Context(), flushWriter{w}, s.src); err != nil {
		// Headers are gone once the first chunk is written.
		log.Printf("render %s: %v", r.URL.Path, err)
	}
}

// handleStatus describes the registry. The format query parameter selects
// any report format and defaults to JSON.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	f := streamtpl.JSON
	if q := r.URL.Query().Get("format"); q != "" {
		var err error
		if f, err = streamtpl.ParseFormat(q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	var buf bytes.Buffer
	if err := streamtpl.WriteEntries(&buf, f, s.reg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", reportType(f))
	_, _ = buf.WriteTo(w)
}

func reportType(f streamtpl.Format) string {
	switch f {
	case streamtpl.JSON:
		return "application/json"
	case streamtpl.HTML:
		return "text/html; charset=utf-8"
	case streamtpl.CSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

type flushWriter struct {
	w http.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
	return n, err
}

func contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "text/plain; charset=utf-8"
}
