package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/munnerz/goautoneg"
)

const (
	mimeHTML = "text/html"
	mimeJSON = "application/json"
)

// format is the representation chosen for an operation result.
type format int

const (
	formatHTML format = iota
	formatJSON
)

// negotiate picks the representation for an Accept header. HTML is
// preferred whenever it is acceptable at all, then JSON. A missing header
// accepts everything.
func negotiate(accept string) (format, error) {
	if strings.TrimSpace(accept) == "" {
		return formatHTML, nil
	}
	clauses := goautoneg.ParseAccept(accept)
	switch {
	case accepts(clauses, mimeHTML):
		return formatHTML, nil
	case accepts(clauses, mimeJSON):
		return formatJSON, nil
	default:
		return 0, ErrNotAcceptable
	}
}

// accepts reports whether mime is acceptable. The most specific matching
// clause decides, so "*/*, text/html;q=0" rejects HTML. Media types compare
// case-insensitively.
func accepts(clauses []goautoneg.Accept, mime string) bool {
	typ, sub, _ := strings.Cut(mime, "/")

	best := -1
	var q float64
	for _, c := range clauses {
		var specificity int
		switch {
		case strings.EqualFold(c.Type, typ) && strings.EqualFold(c.SubType, sub):
			specificity = 2
		case strings.EqualFold(c.Type, typ) && c.SubType == "*":
			specificity = 1
		case c.Type == "*" && c.SubType == "*":
			specificity = 0
		default:
			continue
		}
		if specificity > best {
			best, q = specificity, c.Q
		}
	}
	return best >= 0 && q > 0
}

// writeResult writes an operation result. HTML is the label followed by the
// result as JSON; JSON is the result alone.
func writeResult(w http.ResponseWriter, f format, label string, result any) {
	body, err := json.Marshal(result)
	if err != nil {
		writeInternalError(w, "encoding result")
		return
	}

	switch f {
	case formatJSON:
		w.Header().Set("Content-Type", mimeJSON)
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write to response; connection may be closed
		w.Write(body)
	default:
		w.Header().Set("Content-Type", mimeHTML+"; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write to response; connection may be closed
		io.WriteString(w, label+string(body))
	}
}
