// Package httpparse parses request methods and media types supplied by
// callers. Failures are raised directly as HTTPMethodParseError and
// MIMEParseError; they never pass through the fault enumeration.
package httpparse

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/waftester/netbridge/pkg/exceptions"
)

var standardMethods = map[string]string{
	"GET":     http.MethodGet,
	"HEAD":    http.MethodHead,
	"POST":    http.MethodPost,
	"PUT":     http.MethodPut,
	"PATCH":   http.MethodPatch,
	"DELETE":  http.MethodDelete,
	"CONNECT": http.MethodConnect,
	"OPTIONS": http.MethodOptions,
	"TRACE":   http.MethodTrace,
}

// ParseMethod returns the canonical method. Standard methods are matched
// case-insensitively; extension methods must be valid tokens and are kept
// verbatim.
func ParseMethod(s string) (string, error) {
	if m, ok := standardMethods[strings.ToUpper(s)]; ok {
		return m, nil
	}
	if s == "" || !httpguts.ValidHeaderFieldName(s) {
		return "", exceptions.New(exceptions.ClassHTTPMethodParse,
			fmt.Sprintf("Invalid HTTP method: %q", s))
	}
	return s, nil
}

// MediaType is a parsed Content-Type.
type MediaType struct {
	Type    string
	Subtype string
	Params  map[string]string
}

// Essence returns "type/subtype".
func (m MediaType) Essence() string {
	return m.Type + "/" + m.Subtype
}

func (m MediaType) String() string {
	return mime.FormatMediaType(m.Essence(), m.Params)
}

// ParseMIME parses a media type such as "application/json; charset=utf-8".
func ParseMIME(s string) (MediaType, error) {
	mt, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, exceptions.Wrap(exceptions.ClassMIMEParse,
			fmt.Sprintf("Invalid MIME type %q: %v", s, err), err)
	}
	typ, sub, ok := strings.Cut(mt, "/")
	if !ok || typ == "" || sub == "" {
		return MediaType{}, exceptions.New(exceptions.ClassMIMEParse,
			fmt.Sprintf("Invalid MIME type %q: missing subtype", s))
	}
	return MediaType{Type: typ, Subtype: sub, Params: params}, nil
}
