package api

import (
	"errors"
	"net/url"
	"strings"

	"github.com/tphakala/go-esm/internal/catalog"
)

// Reserved private dialect markers.
const (
	pairSep  = "%14"
	valueSep = "%13"

	// itemsField holds nested row data and is never percent-decoded.
	itemsField = "ITEMS"
)

// ErrMalformedPrivate is returned when a private dialect reply has no
// Response= section.
var ErrMalformedPrivate = errors.New("malformed private API response")

// EncodePrivate renders a private dialect request body:
//
//	Request=API%13<CMD>%13%14<key>%13<value>%13%14...
func EncodePrivate(cmd string, pairs []catalog.Pair) string {
	return "Request=API" + valueSep + cmd + valueSep + pairSep + encodePairs(pairs)
}

func encodePairs(pairs []catalog.Pair) string {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.Key)
		b.WriteString(valueSep)
		if p.Key == itemsField {
			b.WriteString(p.Value)
		} else {
			b.WriteString(url.PathEscape(p.Value))
		}
		b.WriteString(valueSep)
		b.WriteString(pairSep)
	}
	return b.String()
}

// DecodePrivate parses the key/value pairs that follow Response= in a private
// dialect reply.
func DecodePrivate(body string) (map[string]string, error) {
	_, resp, ok := strings.Cut(body, "Response=")
	if !ok {
		return nil, ErrMalformedPrivate
	}
	resp = strings.TrimSpace(resp)

	out := make(map[string]string)
	for _, field := range strings.Split(resp, pairSep) {
		if field == "" {
			continue
		}
		key, value, _ := strings.Cut(field, valueSep)
		value = strings.TrimSuffix(value, valueSep)
		if key != itemsField {
			if unescaped, err := url.PathUnescape(value); err == nil {
				value = unescaped
			}
		}
		out[key] = value
	}
	return out, nil
}
