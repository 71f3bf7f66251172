package northfinder

import (
	"reflect"
	"testing"
)

func TestIsDirectImageURL(t *testing.T) {
	cases := map[string]bool{
		"https://northfinder.com/img/p/1/2/12-original_default.webp": true,
		"https://b2b.northfinder.com/media/x/PHIL.JPG":               true,
		"https://northfinder.com/sk/8434-bu-5273sp-phil.html":        false,
		"https://example.com/img/a.png":                              false,
		"https://northfinder.com/img/a.png?width=300":                true,
		"::not a url": false,
	}
	for in, want := range cases {
		if got := IsDirectImageURL(in); got != want {
			t.Errorf("IsDirectImageURL(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestDeriveFilter(t *testing.T) {
	cases := map[string]string{
		"https://northfinder.com/sk/8434-bu-5273sp-Urban-Bunda-Phil.html": "bu-5273sp-urban-bunda-phil",
		"https://northfinder.com/sk/tayler.html/232-farba-greenblack":     "tayler",
		"https://northfinder.com/sk/abc-tricko.html":                      "abc-tricko",
		"https://northfinder.com/sk/kategoria/":                           "",
	}
	for in, want := range cases {
		if got := DeriveFilter(in); got != want {
			t.Errorf("DeriveFilter(%q)=%q want=%q", in, got, want)
		}
	}
}

func TestVariantTag(t *testing.T) {
	cases := map[string]string{
		"https://northfinder.com/sk/tayler.html/232-farba-greenblack":       "232-farba-greenblack",
		"https://northfinder.com/sk/tayler.html/232-farba-greenblack/extra": "232-farba-greenblack",
		"https://northfinder.com/sk/8434-phil.html":                         "",
		"https://northfinder.com/sk/tayler.html/":                           "",
	}
	for in, want := range cases {
		if got := VariantTag(in); got != want {
			t.Errorf("VariantTag(%q)=%q want=%q", in, got, want)
		}
	}
}

func TestExtractImageURLs(t *testing.T) {
	html := `<img src="https://northfinder.com/img/a-phil-small.jpg">
<img data-src='https://b2b.northfinder.com/img/a-phil-original_default.webp?v=2'>
<img src="https://northfinder.com/img/a-phil-small.jpg">
<img src="https://cdn.example.com/x.png">
<a href="https://northfinder.com/sk/page.html">page</a>
<img src="HTTPS://NORTHFINDER.COM/IMG/B.PNG">`

	want := []string{
		"https://northfinder.com/img/a-phil-small.jpg",
		"https://b2b.northfinder.com/img/a-phil-original_default.webp?v=2",
		"HTTPS://NORTHFINDER.COM/IMG/B.PNG",
	}
	if got := ExtractImageURLs(html); !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractImageURLs got=%q want=%q", got, want)
	}
}

func TestFilterAndPrefer(t *testing.T) {
	urls := []string{
		"https://northfinder.com/img/PHIL-1-small.jpg",
		"https://northfinder.com/img/phil-1-original_default.jpg",
		"https://northfinder.com/img/logo.png",
	}
	filtered := FilterBySubstring(urls, "Phil")
	if len(filtered) != 2 {
		t.Fatalf("FilterBySubstring got=%q", filtered)
	}
	if got := FilterBySubstring(urls, ""); len(got) != 3 {
		t.Fatalf("empty filter dropped urls: %q", got)
	}
	if got := PreferOriginalDefault(filtered); !reflect.DeepEqual(got, urls[1:2]) {
		t.Fatalf("PreferOriginalDefault got=%q", got)
	}
	if got := PreferOriginalDefault(urls[:1]); !reflect.DeepEqual(got, urls[:1]) {
		t.Fatalf("PreferOriginalDefault without originals got=%q", got)
	}
}

func TestFindVariantURLs(t *testing.T) {
	base := "https://northfinder.com/sk/tayler.html/232-farba-greenblack#top"
	html := `<html><body>
<a href="/sk/tayler.html/233-farba-red">red</a>
<a href="https://northfinder.com/sk/tayler.html/234-farba-blue#gallery">blue</a>
<a href="/sk/tayler.html/233-farba-red#x">red again</a>
<a href="https://shop.example.com/sk/tayler.html/235">other host</a>
<a href="/sk/phil.html">other product</a>
<a>no href</a>
</body></html>`

	got, err := FindVariantURLs(html, base)
	if err != nil {
		t.Fatalf("FindVariantURLs: %v", err)
	}
	want := []string{
		"https://northfinder.com/sk/tayler.html/232-farba-greenblack",
		"https://northfinder.com/sk/tayler.html/233-farba-red",
		"https://northfinder.com/sk/tayler.html/234-farba-blue",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindVariantURLs got=%q want=%q", got, want)
	}
}

func TestImageFileName(t *testing.T) {
	cases := []struct {
		url   string
		tag   string
		index int
		want  string
	}{
		{"https://northfinder.com/img/a/phil-1.webp?v=2", "232-farba-red", 3, "232-farba-red_03_phil-1.png"},
		{"https://northfinder.com/img/a/phil-1.jpg", "", 1, "01_phil-1.png"},
		{"https://northfinder.com/img/a/phil-1.jpg", "", 0, "phil-1.png"},
		{"https://northfinder.com/img/a/phil.tar.png", "", 12, "12_phil.tar.png"},
	}
	for _, tc := range cases {
		if got := imageFileName(tc.url, tc.tag, tc.index); got != tc.want {
			t.Errorf("imageFileName(%q,%q,%d)=%q want=%q", tc.url, tc.tag, tc.index, got, tc.want)
		}
	}
}
