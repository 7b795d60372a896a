// Package listing renders directory listings for humans (HTML) and
// programs (JSON).
package listing

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/marmos91/wex/pkg/content"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Page is the input of both presenters.
type Page struct {
	// Host is shown as the page heading, typically the request Host header.
	Host string

	// Path is the listed directory relative to the root, "." for the root.
	Path string

	// Entries are the directory children in any order.
	Entries []content.EntryDescriptor
}

// Sorted returns the entries with directories first, then by name
// (case-insensitive, ties broken byte-wise).
func Sorted(entries []content.EntryDescriptor) []content.EntryDescriptor {
	out := append([]content.EntryDescriptor(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		di := out[i].Kind == content.KindDirectory
		dj := out[j].Kind == content.KindDirectory
		if di != dj {
			return di
		}
		li, lj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if li != lj {
			return li < lj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Href returns the URL path addressing rel ("." for the root), with every
// segment percent-encoded.
func Href(rel string) string {
	if rel == "." || rel == "" {
		return "/"
	}
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}

// ============================================================================
// HTML
// ============================================================================

type crumb struct {
	Name string
	Href string
}

type htmlEntry struct {
	Name  string
	Href  string
	Icon  string
	Class string
	IsDir bool
}

type htmlPage struct {
	Host        string
	Title       string
	Self        string
	Parent      string
	Breadcrumbs []crumb
	Entries     []htmlEntry
}

// RenderHTML writes the listing page for p to w.
//
// The page carries breadcrumb navigation, a "../" link outside the root, an
// upload form posting a multi-file "files" field to the listed directory,
// and one link per entry. All names are HTML-escaped.
func RenderHTML(w io.Writer, p Page) error {
	return indexTemplate.Execute(w, newHTMLPage(p))
}

func newHTMLPage(p Page) htmlPage {
	page := htmlPage{
		Host:  p.Host,
		Title: "/",
		Self:  Href(p.Path),
	}

	if p.Path != "." && p.Path != "" {
		page.Title = "/" + p.Path

		segments := strings.Split(p.Path, "/")
		for i, s := range segments {
			page.Breadcrumbs = append(page.Breadcrumbs, crumb{
				Name: s,
				Href: Href(strings.Join(segments[:i+1], "/")),
			})
		}
		page.Parent = Href(path.Dir(p.Path))
	}

	for _, e := range Sorted(p.Entries) {
		rel := e.Name
		if p.Path != "." && p.Path != "" {
			rel = p.Path + "/" + e.Name
		}

		entry := htmlEntry{Name: e.Name, Href: Href(rel)}
		switch e.Kind {
		case content.KindDirectory:
			entry.Icon, entry.Class, entry.IsDir = "\U0001F4C1", "folder", true
		case content.KindFile:
			entry.Icon, entry.Class = "\U0001F4C4", "file"
		default:
			entry.Icon, entry.Class = "❓", "other"
		}
		page.Entries = append(page.Entries, entry)
	}

	return page
}

// ============================================================================
// JSON
// ============================================================================

// JSONEntry is one child in the JSON listing.
type JSONEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// JSONPage is the JSON listing document.
type JSONPage struct {
	Path    string      `json:"path"`
	Entries []JSONEntry `json:"entries"`
}

// NewJSON converts p into its JSON document, entries sorted like the HTML
// page.
func NewJSON(p Page) JSONPage {
	doc := JSONPage{Path: p.Path, Entries: make([]JSONEntry, 0, len(p.Entries))}
	for _, e := range Sorted(p.Entries) {
		doc.Entries = append(doc.Entries, JSONEntry{Name: e.Name, Type: e.Kind.String()})
	}
	return doc
}

// RenderJSON writes the JSON listing for p to w.
func RenderJSON(w io.Writer, p Page) error {
	return json.NewEncoder(w).Encode(NewJSON(p))
}
