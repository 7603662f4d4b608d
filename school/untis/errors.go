package untis

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/harrybrwn/untis-probe/pkg/probe"
	"github.com/jaytaylor/html2text"
)

var (
	// ErrNotLoggedIn is returned by queries on a session
	// without a session id.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrUnsupported is returned for calls the api does not offer.
	ErrUnsupported = probe.ErrUnsupported
)

// JSON-RPC error codes returned by WebUntis
const (
	CodeMethodNotFound   = -32601
	CodeNotAuthenticated = -8520
	CodeBadCredentials   = -8504
	CodeNoRight          = -8509
	CodeNoAllowedDate    = -7004
)

// Error is an error returned by the JSON-RPC api.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Method  string `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.Method == "" {
		return fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	return fmt.Sprintf("%s: %s (code %d)", e.Method, msg, e.Code)
}

// Is lets errors.Is match api errors against the package's
// sentinel errors.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeMethodNotFound:
		return target == ErrUnsupported
	case CodeNotAuthenticated:
		return target == ErrNotLoggedIn
	}
	return false
}

// HTTPError is returned when the server answers with something
// other than a JSON-RPC response, usually an html error page.
type HTTPError struct {
	Method  string
	Status  string
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Method, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, e.Status, e.Message)
}

const (
	maxErrorPage = 1 << 20
	// maxMessage is the longest message taken from a page, in runes.
	maxMessage = 200
)

func newHTTPError(method string, resp *http.Response) *HTTPError {
	e := &HTTPError{Method: method, Status: resp.Status}
	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxErrorPage))
	if err != nil {
		return e
	}
	e.Message = pageMessage(string(body))
	return e
}

// pageMessage finds a short description of an html page, the
// title if there is one or else the first line of its text.
func pageMessage(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err == nil {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			return title
		}
	}
	text, err := html2text.FromString(page)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if r := []rune(line); len(r) > maxMessage {
				line = string(r[:maxMessage])
			}
			return line
		}
	}
	return ""
}
