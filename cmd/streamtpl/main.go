// Command streamtpl renders a %NAME% template against placeholders declared
// in a manifest, writing the output in fixed-size chunks to stdout or
// serving it over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bjaus/streamtpl"
)

func main() {
	tplPath := flag.String("template", "", "template file to render")
	manifestPath := flag.String("manifest", "", "YAML manifest declaring placeholders")
	configPath := flag.String("config", "", "YAML config file (STREAMTPL_* variables override it)")
	chunk := flag.Int("chunk", 0, "output chunk size in bytes (default output_chunk from config)")
	bulk := flag.Bool("bulk", false, "read the template as bulk storage instead of loading it")
	describe := flag.String("describe", "", "print the registry in this format (table, csv, json, go-template=...) and exit")
	trace := flag.String("trace", "", "print the stack to stderr after every chunk in this format")
	ask := flag.Bool("ask", false, "prompt for manifest entries that declare a prompt")
	serve := flag.String("serve", "", "serve the rendered template on this address")
	logLevel := flag.String("log", "", "log level (debug, info, warn, error, off)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *logLevel)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *chunk < 0 {
		log.Fatalf("chunk must not be negative, got %d", *chunk)
	}
	if *chunk > 0 {
		cfg.OutputChunk = *chunk
	}
	opts := []streamtpl.Option{streamtpl.WithConfig(cfg)}

	reg := streamtpl.NewRegistry(opts...)
	if *manifestPath != "" {
		if err := applyManifest(reg, *manifestPath, *ask); err != nil {
			log.Fatalf("manifest: %v", err)
		}
	}

	if *describe != "" {
		f, err := streamtpl.ParseFormat(*describe)
		if err != nil {
			log.Fatal(err)
		}
		if err := streamtpl.WriteEntries(os.Stdout, f, reg); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *tplPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	src, closeSrc, err := openTemplate(*tplPath, *bulk)
	if err != nil {
		log.Fatalf("template: %v", err)
	}
	defer closeSrc()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve != "" {
		srv := newServer(streamtpl.NewPool(reg, opts...), reg, src, contentType(*tplPath))
		if err := srv.run(ctx, *serve); err != nil {
			log.Fatal(err)
		}
		return
	}

	var traceFormat streamtpl.Format
	if *trace != "" {
		if traceFormat, err = streamtpl.ParseFormat(*trace); err != nil {
			log.Fatal(err)
		}
	}
	r := streamtpl.NewRenderer(opts...)
	c := streamtpl.NewContext(reg, opts...)
	if err := render(ctx, os.Stdout, r, c, src, cfg.OutputChunk, traceFormat); err != nil {
		fmt.Fprint(os.Stderr, c.Trace())
		log.Fatal(err)
	}
}

func loadConfig(path, level string) (streamtpl.Config, error) {
	cfg := streamtpl.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = streamtpl.LoadConfig(path); err != nil {
			return streamtpl.Config{}, err
		}
	}
	cfg, err := streamtpl.ApplyEnv(cfg, os.LookupEnv)
	if err != nil {
		return streamtpl.Config{}, err
	}
	if level != "" {
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			return streamtpl.Config{}, err
		}
	}
	return cfg, nil
}

func applyManifest(reg *streamtpl.Registry, path string, ask bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	m, err := streamtpl.LoadManifest(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
	if err != nil {
		return err
	}
	var answers map[string]string
	if ask {
		if answers, err = askPrompts(m.Prompts()); err != nil {
			return err
		}
	}
	return m.Apply(reg, streamtpl.Bindings{Answers: answers})
}

// openTemplate loads the template, or with bulk set keeps the file open and
// reads it in place.
func openTemplate(path string, bulk bool) (streamtpl.Source, func(), error) {
	if !bulk {
		data, err := os.ReadFile(path)
		if err != nil {
			return streamtpl.Source{}, nil, err
		}
		return streamtpl.DirectBytes(data), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return streamtpl.Source{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return streamtpl.Source{}, nil, err
	}
	return streamtpl.BulkReader(f, int(info.Size())), func() { _ = f.Close() }, nil
}

// render writes the output chunk by chunk, optionally tracing the stack
// after each one.
func render(ctx context.Context, w io.Writer, r *streamtpl.Renderer, c *streamtpl.Context, src streamtpl.Source, chunk int, trace streamtpl.Format) error {
	buf := make([]byte, chunk)
	if trace == "" {
		_, err := streamtpl.Stream(ctx, w, r, c, src, buf)
		return err
	}
	if err := r.Initialize(c, src); err != nil {
		return err
	}
	for !r.IsComplete(c) && !r.HasError(c) {
		if err := ctx.Err(); err != nil {
			c.Unwind()
			return err
		}
		n := r.Next(c, buf)
		if _, err := w.Write(buf[:n]); err != nil {
			c.Unwind()
			return err
		}
		if err := streamtpl.WriteFrames(os.Stderr, trace, c); err != nil {
			return err
		}
	}
	if r.HasError(c) {
		return c.Err()
	}
	return nil
}
