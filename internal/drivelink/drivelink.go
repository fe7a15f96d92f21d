// Package drivelink canonicalizes raw shared-image links found in survey
// spreadsheet cells into directly fetchable URLs.
//
// Field teams paste whatever their file-sharing client produced: viewer links,
// open?id= links, uc?id= links, sometimes a bare file identifier, sometimes an
// already-direct image URL. Normalization rewrites the known shapes to a
// thumbnail-service URL and passes everything else through untouched, so the
// fetcher downstream decides whether the link actually resolves.
package drivelink

import (
	"fmt"
	"regexp"
	"strings"
)

// LinkShape identifies which rewrite rule matched a raw link.
type LinkShape string

const (
	ShapeNone        LinkShape = "none"         // blank or missing cell
	ShapeFileViewer  LinkShape = "file-viewer"  // .../file/d/<ID>/...
	ShapeQueryID     LinkShape = "query-id"     // ...?id=<ID> or open?id=<ID>
	ShapeThumbnail   LinkShape = "thumbnail"    // already on the thumbnail host
	ShapeOpaqueToken LinkShape = "opaque-token" // bare long file identifier
	ShapeDirectImage LinkShape = "direct-image" // recognized image URL
	ShapePassthrough LinkShape = "passthrough"  // nothing matched, kept as-is
)

const (
	thumbnailHost    = "lh3.googleusercontent.com"
	fileViewerMarker = "/file/d/"
	exportViewPrefix = "https://drive.google.com/uc?export=view&id="

	// DefaultThumbnailWidth is the pixel width requested from the thumbnail
	// service when none is configured.
	DefaultThumbnailWidth = 1000
)

// opaqueTokenRe matches a run of word/hyphen characters long enough to be a
// file identifier rather than ordinary text.
var opaqueTokenRe = regexp.MustCompile(`[\w-]{25,}`)

// imageExtensions are path suffixes treated as already-direct image resources.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// Normalizer rewrites raw share links into canonical fetchable URLs. The zero
// value is not usable; construct with New.
type Normalizer struct {
	width int
	rules []rule
}

// rule pairs a shape tag with its rewriter. Rewriters report ok=false when the
// shape does not apply, letting evaluation fall through to the next rule.
type rule struct {
	shape   LinkShape
	rewrite func(raw string) (string, bool)
}

// New creates a Normalizer requesting thumbnails of the given pixel width.
// A non-positive width falls back to DefaultThumbnailWidth.
func New(width int) *Normalizer {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	n := &Normalizer{width: width}
	// Priority order matters: first match wins.
	n.rules = []rule{
		{ShapeFileViewer, n.rewriteFileViewer},
		{ShapeQueryID, n.rewriteQueryID},
		{ShapeThumbnail, n.rewriteThumbnail},
		{ShapeOpaqueToken, n.rewriteOpaqueToken},
		{ShapeDirectImage, rewriteDirectImage},
	}
	return n
}

// Normalize produces the canonical URL for a raw link field. ok is false only
// for blank or missing input; an unrecognized shape is passed through trimmed,
// not rejected. Normalize never panics for any string input.
func (n *Normalizer) Normalize(raw string) (url string, ok bool) {
	url, _, ok = n.Classify(raw)
	return url, ok
}

// Classify is Normalize plus the shape tag of the rule that matched, for
// logging and tests.
func (n *Normalizer) Classify(raw string) (url string, shape LinkShape, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ShapeNone, false
	}

	for _, r := range n.rules {
		if rewritten, matched := r.rewrite(trimmed); matched {
			return rewritten, r.shape, true
		}
	}

	// Deliberate fallback: treat as already-direct rather than failing.
	return trimmed, ShapePassthrough, true
}

// thumbnailURL builds the thumbnail-service URL for a file identifier.
func (n *Normalizer) thumbnailURL(id string) string {
	return fmt.Sprintf("https://%s/d/%s=w%d", thumbnailHost, id, n.width)
}

// rewriteFileViewer handles viewer share links of the form .../file/d/<ID>/view.
// The identifier ends at the next path separator, query or fragment.
func (n *Normalizer) rewriteFileViewer(raw string) (string, bool) {
	idx := strings.Index(raw, fileViewerMarker)
	if idx < 0 {
		return "", false
	}
	id := cutIdentifier(raw[idx+len(fileViewerMarker):])
	if id == "" {
		return "", false
	}
	return n.thumbnailURL(id), true
}

// rewriteQueryID handles open?id=<ID>, uc?id=<ID> and plain ?id=<ID> links.
func (n *Normalizer) rewriteQueryID(raw string) (string, bool) {
	for _, marker := range []string{"open?id=", "uc?id=", "?id="} {
		idx := strings.Index(raw, marker)
		if idx < 0 {
			continue
		}
		id := cutIdentifier(raw[idx+len(marker):])
		if id == "" {
			continue
		}
		return n.thumbnailURL(id), true
	}
	return "", false
}

// rewriteThumbnail normalizes links already on the thumbnail host: a size
// suffix is appended when absent, otherwise the link passes through.
func (n *Normalizer) rewriteThumbnail(raw string) (string, bool) {
	if !strings.Contains(raw, thumbnailHost) {
		return "", false
	}
	last := raw[strings.LastIndex(raw, "/")+1:]
	if strings.Contains(last, "=") {
		return raw, true
	}
	return fmt.Sprintf("%s=w%d", raw, n.width), true
}

// rewriteOpaqueToken treats a long run of identifier characters embedded
// anywhere in the string as a bare file ID and rewrites it to an export-view
// URL. Only consulted after the explicit URL shapes failed.
func (n *Normalizer) rewriteOpaqueToken(raw string) (string, bool) {
	token := opaqueTokenRe.FindString(raw)
	if token == "" {
		return "", false
	}
	return exportViewPrefix + token, true
}

// rewriteDirectImage passes through URLs whose path already names an image
// resource.
func rewriteDirectImage(raw string) (string, bool) {
	path := raw
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	lower := strings.ToLower(path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return raw, true
		}
	}
	return "", false
}

// cutIdentifier returns the identifier prefix of s, ending at the first path
// separator, query parameter separator or fragment.
func cutIdentifier(s string) string {
	if i := strings.IndexAny(s, "/?&#"); i >= 0 {
		s = s[:i]
	}
	return s
}
