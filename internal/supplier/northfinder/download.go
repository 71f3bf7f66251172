package northfinder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp"
)

// Fetcher retrieves a URL. *httpds.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Options controls one Run.
type Options struct {
	// Filter keeps only image URLs containing it. Empty derives it from the
	// product URL.
	Filter string
	// OutDir is the target directory. Empty means "images_<filter>", or
	// "images" without a filter, or "images_direct" for a direct image URL.
	OutDir string
	// AllVariants also processes the colour variants linked from the page.
	AllVariants bool
}

// Report summarises a Run.
type Report struct {
	OutDir string
	Filter string
	Pages  int
	Saved  int
	Failed int
}

// Downloader saves supplier images as PNG files.
type Downloader struct {
	Fetch Fetcher
}

// Run handles either a direct image URL or a product page URL.
// Per-image failures are logged and counted, not returned.
func (d *Downloader) Run(ctx context.Context, rawURL string, opt Options) (Report, error) {
	if IsDirectImageURL(rawURL) {
		rep := Report{OutDir: opt.OutDir}
		if rep.OutDir == "" {
			rep.OutDir = "images_direct"
		}
		log.Printf("images: direct image url, saving one PNG into %s", rep.OutDir)
		if err := os.MkdirAll(rep.OutDir, 0o755); err != nil {
			return rep, err
		}
		if _, err := d.SaveImage(ctx, rawURL, rep.OutDir, "", 1); err != nil {
			return rep, err
		}
		rep.Saved = 1
		return rep, nil
	}

	rep := Report{Filter: opt.Filter, OutDir: opt.OutDir}
	if rep.Filter == "" {
		rep.Filter = DeriveFilter(rawURL)
		if rep.Filter != "" {
			log.Printf("images: filter derived from url: %q", rep.Filter)
		} else {
			log.Printf("images: no filter derived from url, keeping every image")
		}
	}
	if rep.OutDir == "" {
		rep.OutDir = "images"
		if rep.Filter != "" {
			rep.OutDir = "images_" + rep.Filter
		}
	}
	if err := os.MkdirAll(rep.OutDir, 0o755); err != nil {
		return rep, err
	}

	pages := []string{rawURL}
	if opt.AllVariants {
		body, err := d.Fetch.Get(ctx, rawURL)
		if err != nil {
			return rep, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		pages, err = FindVariantURLs(string(body), rawURL)
		if err != nil {
			return rep, fmt.Errorf("parse %s: %w", rawURL, err)
		}
		log.Printf("images: found %d variant pages (including this one)", len(pages))
	}

	for _, p := range pages {
		saved, failed, err := d.ProcessPage(ctx, p, rep.Filter, rep.OutDir)
		if err != nil {
			return rep, err
		}
		rep.Pages++
		rep.Saved += saved
		rep.Failed += failed
	}
	return rep, nil
}

// ProcessPage saves every matching image of one product page.
func (d *Downloader) ProcessPage(ctx context.Context, pageURL, filter, outDir string) (saved, failed int, err error) {
	body, err := d.Fetch.Get(ctx, pageURL)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	urls := ExtractImageURLs(string(body))
	if len(urls) == 0 {
		log.Printf("images: %s: no northfinder.com images in page", pageURL)
		return 0, 0, nil
	}
	urls = FilterBySubstring(urls, filter)
	if len(urls) == 0 {
		log.Printf("images: %s: no images match filter %q", pageURL, filter)
		return 0, 0, nil
	}
	urls = PreferOriginalDefault(urls)

	tag := VariantTag(pageURL)
	log.Printf("images: page=%s variant=%q images=%d", pageURL, tag, len(urls))

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return saved, failed, err
		}
		if _, err := d.SaveImage(ctx, u, outDir, tag, i+1); err != nil {
			log.Printf("images: skip %s: %v", u, err)
			failed++
			continue
		}
		saved++
	}
	return saved, failed, nil
}

// SaveImage downloads imageURL, converts it to RGBA and writes it as PNG
// into outDir. It returns the written path.
func (d *Downloader) SaveImage(ctx context.Context, imageURL, outDir, tag string, index int) (string, error) {
	body, err := d.Fetch.Get(ctx, imageURL)
	if err != nil {
		return "", err
	}
	src, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)

	out := filepath.Join(outDir, imageFileName(imageURL, tag, index))
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, rgba); err != nil {
		f.Close()
		os.Remove(out)
		return "", fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Printf("images: saved %s", out)
	return out, nil
}
