// Command supplier-images downloads the product images of a Northfinder
// product page (or a single direct image URL) and stores them as PNG files.
//
//	supplier-images -V https://b2b.northfinder.com/sk/.../123-bu-5012or.html
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"upvariants/internal/httpds"
	"upvariants/internal/metrics"
	"upvariants/internal/metrics/datadog"
	"upvariants/internal/supplier/northfinder"
)

// userAgent identifies the downloader to the supplier.
const userAgent = "Mozilla/5.0 (compatible; NorthfinderImageDownloader/1.0)"

// newFetcher is replaced in tests.
var newFetcher = func(opts httpds.Options) northfinder.Fetcher { return httpds.New(opts) }

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run returns 0 on success, 2 on usage errors and 1 when the download fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		opt            northfinder.Options
		secure         bool
		timeout        time.Duration
		metricsBackend string
	)

	fs := flag.NewFlagSet("supplier-images", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opt.Filter, "filter", "", "keep image URLs containing this text (default: derived from the URL)")
	fs.StringVar(&opt.Filter, "f", "", "shorthand for -filter")
	fs.StringVar(&opt.OutDir, "out", "", "output directory (default images_<filter>)")
	fs.StringVar(&opt.OutDir, "o", "", "shorthand for -out")
	fs.BoolVar(&opt.AllVariants, "all-variants", false, "also download the colour variants linked from the page")
	fs.BoolVar(&opt.AllVariants, "V", false, "shorthand for -all-variants")
	fs.BoolVar(&secure, "secure", false, "verify TLS certificates")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	fs.StringVar(&metricsBackend, "metrics-backend", os.Getenv("METRICS_BACKEND"), "metrics backend: datadog or none")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: supplier-images [flags] <product-or-image-url>")
		return 2
	}
	log.SetOutput(stderr)

	if strings.EqualFold(metricsBackend, "datadog") {
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName: "supplier_images",
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			return fatalf(stderr, 1, "metrics: %v", err)
		}
		metrics.SetBackend(b)
		defer func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: close: %v", err)
			}
			metrics.SetBackend(nil)
		}()
	}

	if !secure {
		log.Printf("images: TLS certificate verification disabled (use -secure to enable)")
	}
	d := &northfinder.Downloader{Fetch: newFetcher(httpds.Options{
		Timeout:   timeout,
		Insecure:  !secure,
		UserAgent: userAgent,
	})}

	rep, err := d.Run(ctx, fs.Arg(0), opt)
	if err != nil {
		return fatalf(stderr, 1, "%v", err)
	}
	fmt.Fprintf(stdout, "Done. %d images saved into %s (%d pages, %d failed)\n", rep.Saved, rep.OutDir, rep.Pages, rep.Failed)
	return 0
}

func fatalf(w io.Writer, code int, format string, a ...any) int {
	fmt.Fprintf(w, format+"\n", a...)
	return code
}
