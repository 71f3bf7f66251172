// Package northfinder downloads product images from the Northfinder
// supplier site and stores them as PNG files ready for an Upgates import.
package northfinder

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var imageExts = []string{".webp", ".jpg", ".jpeg", ".png"}

var imageURLRe = regexp.MustCompile(`(?i)https://(?:b2b\.)?northfinder\.com/[^\s"']+?\.(?:webp|jpg|jpeg|png)(?:\?[^\s"']*)?`)

// IsDirectImageURL reports whether raw points straight at an image on a
// northfinder.com host.
func IsDirectImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Host, "northfinder.com") {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, ext := range imageExts {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// DeriveFilter returns the product slug of a product page URL: the path
// segment containing ".html", cut before ".html", without a numeric "NNN-"
// prefix, lowercased. Image file names on the site contain this slug.
//
//	/sk/8434-bu-5273sp-urban-bunda-phil.html -> bu-5273sp-urban-bunda-phil
//
// It returns "" when no segment contains ".html".
func DeriveFilter(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(u.Path, "/") {
		base, _, found := strings.Cut(seg, ".html")
		if !found {
			continue
		}
		if num, rest, ok := strings.Cut(base, "-"); ok && isDigits(num) {
			base = rest
		}
		return strings.ToLower(base)
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// VariantTag returns the first path segment after ".html/", e.g.
// "232-farba-greenblack" for ".../tayler.html/232-farba-greenblack".
func VariantTag(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	_, after, found := strings.Cut(u.Path, ".html/")
	if !found {
		return ""
	}
	tag, _, _ := strings.Cut(after, "/")
	return tag
}

// ExtractImageURLs finds Northfinder image URLs in html, first-seen order,
// without duplicates.
func ExtractImageURLs(html string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range imageURLRe.FindAllString(html, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// FilterBySubstring keeps URLs containing sub, case-insensitively. An empty
// sub keeps everything.
func FilterBySubstring(urls []string, sub string) []string {
	if sub == "" {
		return urls
	}
	sub = strings.ToLower(sub)
	var out []string
	for _, u := range urls {
		if strings.Contains(strings.ToLower(u), sub) {
			out = append(out, u)
		}
	}
	return out
}

// PreferOriginalDefault returns only the "original_default" renditions when
// the page has any, otherwise urls unchanged.
func PreferOriginalDefault(urls []string) []string {
	var originals []string
	for _, u := range urls {
		if strings.Contains(u, "original_default") {
			originals = append(originals, u)
		}
	}
	if len(originals) > 0 {
		return originals
	}
	return urls
}

// FindVariantURLs lists the colour variants of the product at baseURL that
// the page links to: anchors on the same host whose path contains the
// product's ".html" path. baseURL comes first; fragments are dropped.
func FindVariantURLs(html, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	htmlPath := base.Path
	if before, _, found := strings.Cut(base.Path, ".html"); found {
		htmlPath = before + ".html"
	}

	var out []string
	seen := map[string]bool{}
	add := func(u string) {
		u, _, _ = strings.Cut(u, "#")
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	add(baseURL)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		full := base.ResolveReference(ref)
		if full.Host != base.Host || !strings.Contains(full.Path, htmlPath) {
			return
		}
		add(full.String())
	})
	return out, nil
}

// imageFileName builds "<tag>_<NN>_<name>.png" from an image URL; tag and
// index are omitted when empty / zero.
func imageFileName(imageURL, tag string, index int) string {
	raw, _, _ := strings.Cut(imageURL, "?")
	name := raw
	if u, err := url.Parse(raw); err == nil {
		name = u.Path
	}
	name = path.Base(name)
	name = strings.TrimSuffix(name, path.Ext(name))

	var parts []string
	if tag != "" {
		parts = append(parts, tag)
	}
	if index > 0 {
		parts = append(parts, fmt.Sprintf("%02d", index))
	}
	parts = append(parts, name)
	return strings.Join(parts, "_") + ".png"
}
