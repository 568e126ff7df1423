package feed

import "testing"

func TestImageFromHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"empty", "", ""},
		{"og image", `<meta property="og:image" content="https://a.com/og.jpg"><img src="https://a.com/img.jpg">`, "https://a.com/og.jpg"},
		{"twitter image", `<meta name="twitter:image" content="https://a.com/tw.jpg">`, "https://a.com/tw.jpg"},
		{"content first", `<meta content="https://a.com/rev.jpg" property="og:image">`, "https://a.com/rev.jpg"},
		{"first img", `<p>x</p><img alt="a" src="https://a.com/1.jpg"><img src="https://a.com/2.jpg">`, "https://a.com/1.jpg"},
		{"img only attribute", `<img src="https://a.com/only.jpg">`, "https://a.com/only.jpg"},
		{"single quotes", `<IMG SRC='https://a.com/q.jpg'>`, "https://a.com/q.jpg"},
		{"entity in url", `<img src="https://a.com/i.jpg?w=1&amp;h=2">`, "https://a.com/i.jpg?w=1&h=2"},
		{"no image", `<p>just text</p>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageFromHTML(tt.html); got != tt.want {
				t.Errorf("ImageFromHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImageFromEnclosures(t *testing.T) {
	enclosures := []Enclosure{
		{URL: "https://a.com/ep.mp3", Type: "audio/mpeg"},
		{URL: "https://a.com/pic.png", Type: "Image/PNG"},
	}
	if got := ImageFromEnclosures(enclosures); got != "https://a.com/pic.png" {
		t.Errorf("got %q, want image enclosure", got)
	}
	if got := ImageFromEnclosures(enclosures[:1]); got != "" {
		t.Errorf("got %q for audio only, want empty", got)
	}
}

func TestExtractImagePriority(t *testing.T) {
	media := []AttrRef{{Attr: "url", Attrs: map[string]string{"url": "https://a.com/media.jpg"}}}
	thumb := []AttrRef{{Attr: "url", Attrs: map[string]string{"url": "https://a.com/thumb.jpg"}}}
	encl := []Enclosure{{URL: "https://a.com/encl.jpg", Type: "image/jpeg"}}
	html := `<img src="https://a.com/inline.jpg">`

	tests := []struct {
		name string
		raw  RawItem
		want string
	}{
		{"media content wins", RawItem{MediaContent: media, MediaThumbnails: thumb, Enclosures: encl, Description: html}, "https://a.com/media.jpg"},
		{"thumbnail next", RawItem{MediaThumbnails: thumb, Enclosures: encl, Description: html}, "https://a.com/thumb.jpg"},
		{"enclosure next", RawItem{Enclosures: encl, Description: html}, "https://a.com/encl.jpg"},
		{"inline html last", RawItem{Description: html}, "https://a.com/inline.jpg"},
		{"content before description", RawItem{Content: `<img src="https://a.com/content.jpg">`, Description: html}, "https://a.com/content.jpg"},
		{"empty media url skipped", RawItem{MediaContent: []AttrRef{{Attr: "url", Attrs: map[string]string{}}}, MediaThumbnails: thumb}, "https://a.com/thumb.jpg"},
		{"nothing", RawItem{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractImage(tt.raw); got != tt.want {
				t.Errorf("extractImage() = %q, want %q", got, tt.want)
			}
		})
	}
}
