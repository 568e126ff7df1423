package feed

import (
	"strings"
	"time"

	ext "github.com/mmcdole/gofeed/extensions"
)

// FieldValue is one of the shapes a feed field arrives in: PlainText,
// TextNode or AttrRef. Resolve turns any of them into a string.
type FieldValue interface {
	isFieldValue()
}

// PlainText is a field whose value is the element text itself.
type PlainText string

// TextNode is a namespaced element (an extension) carrying text content and
// possibly attributes, e.g. <dc:subject>.
type TextNode struct {
	Text  string
	Attrs map[string]string
}

// AttrRef is a field whose value lives in an attribute, e.g. the href of an
// Atom <link> or the url of <media:thumbnail>.
type AttrRef struct {
	Attr  string
	Attrs map[string]string
}

func (PlainText) isFieldValue() {}
func (TextNode) isFieldValue()  {}
func (AttrRef) isFieldValue()   {}

// Resolve returns the trimmed string carried by v, or "" for nil.
func Resolve(v FieldValue) string {
	switch f := v.(type) {
	case PlainText:
		return strings.TrimSpace(string(f))
	case TextNode:
		return strings.TrimSpace(f.Text)
	case AttrRef:
		return strings.TrimSpace(f.Attrs[f.Attr])
	default:
		return ""
	}
}

// ResolveFirst returns the first non-empty resolution among values.
func ResolveFirst(values ...FieldValue) string {
	for _, v := range values {
		if s := Resolve(v); s != "" {
			return s
		}
	}
	return ""
}

// RawItem is a feed entry before normalization. Each field keeps the shape it
// was found in; normalization resolves them.
type RawItem struct {
	Title       FieldValue
	Link        []FieldValue
	Description string
	Content     string
	Published   *time.Time
	Updated     *time.Time
	Category    []FieldValue

	MediaContent    []AttrRef
	MediaThumbnails []AttrRef
	Enclosures      []Enclosure
}

func extensionText(exts ext.Extensions, space, name string) []FieldValue {
	var out []FieldValue
	for _, e := range lookupExtension(exts, space, name) {
		out = append(out, TextNode{Text: e.Value, Attrs: e.Attrs})
	}
	return out
}

func extensionAttrs(exts ext.Extensions, space, name, attr string) []AttrRef {
	var out []AttrRef
	for _, e := range lookupExtension(exts, space, name) {
		out = append(out, AttrRef{Attr: attr, Attrs: e.Attrs})
	}
	return out
}

// lookupExtension returns the named elements of a namespace, including those
// nested one level down in a media:group style container.
func lookupExtension(exts ext.Extensions, space, name string) []ext.Extension {
	elems := exts[space]
	if elems == nil {
		return nil
	}
	found := append([]ext.Extension(nil), elems[name]...)
	for _, group := range elems["group"] {
		found = append(found, group.Children[name]...)
	}
	return found
}
