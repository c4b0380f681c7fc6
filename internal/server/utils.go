package server

import (
	"net/http"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// cleanRequestPath turns a request path into a rooted, slash-separated name
// with no . or .. elements, so it cannot climb above the root.
func cleanRequestPath(rawPath string) string {
	if !strings.HasPrefix(rawPath, "/") {
		rawPath = "/" + rawPath
	}
	return path.Clean(rawPath)
}

// alternateForms returns the NFC and NFD spellings of name that differ from it.
// macOS stores decomposed file names while browsers send composed URLs.
func alternateForms(name string) []string {
	var forms []string
	for _, form := range []norm.Form{norm.NFC, norm.NFD} {
		alt := form.String(name)
		if alt != name && !slices.Contains(forms, alt) {
			forms = append(forms, alt)
		}
	}
	return forms
}

// withPath returns a shallow copy of r that targets p.
func withPath(r *http.Request, p string) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	u := *r.URL
	u.Path = p
	u.RawPath = ""
	r2.URL = &u
	return r2
}
