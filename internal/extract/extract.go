package extract

import (
    "bytes"
    "context"
    "errors"
    "fmt"
    "strings"

    "golang.org/x/net/html"

    "github.com/hyperifyio/agentcrew/internal/fetch"
)

// Result is the flat record of page signals handed to the agents.
// Title and MetaDescription are nil when the page has no such element.
type Result struct {
    SourceURL       string   `json:"source_url"`
    Title           *string  `json:"title"`
    MetaDescription *string  `json:"meta_description"`
    Headers         []string `json:"headers"`
    InternalLinks   []string `json:"internal_links"`
    ExternalLinks   []string `json:"external_links"`
    BodyText        string   `json:"body_text"`
}

// ParseError reports markup that could not be parsed at all.
type ParseError struct {
    URL string
    Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.URL, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor fetches a page and derives its Result. It holds no state between
// calls, so one value may serve concurrent requests.
type Extractor struct {
    Fetcher fetch.Getter
}

// Extract fetches url once and extracts its signals. Retrieval failures are
// returned as *fetch.FetchError and no partial Result is produced.
func (e *Extractor) Extract(ctx context.Context, url string) (Result, error) {
    if e == nil || e.Fetcher == nil {
        return Result{}, errors.New("extractor not configured")
    }
    resp, err := e.Fetcher.Get(ctx, url)
    if err != nil {
        var fe *fetch.FetchError
        if errors.As(err, &fe) {
            return Result{}, err
        }
        return Result{}, &fetch.FetchError{URL: url, Err: err}
    }
    return FromHTML(url, resp.Body)
}

// FromHTML parses input and derives the page signals for sourceURL.
// Malformed markup is repaired by the HTML5 parser and yields a best-effort
// result; only a parser failure is reported as *ParseError.
func FromHTML(sourceURL string, input []byte) (Result, error) {
    root, err := html.Parse(bytes.NewReader(input))
    if err != nil {
        return Result{}, &ParseError{URL: sourceURL, Err: err}
    }
    w := walker{
        res: Result{
            SourceURL:     sourceURL,
            Headers:       []string{},
            InternalLinks: []string{},
            ExternalLinks: []string{},
        },
    }
    w.walk(root, false)
    w.res.BodyText = strings.Join(w.words, " ")
    return w.res, nil
}

type walker struct {
    res       Result
    words     []string
    seenTitle bool
    seenMeta  bool
}

func (w *walker) walk(n *html.Node, hidden bool) {
    switch n.Type {
    case html.TextNode:
        if !hidden {
            w.words = append(w.words, strings.Fields(n.Data)...)
        }
        return
    case html.CommentNode, html.DoctypeNode:
        return
    case html.ElementNode:
        // Foreign content (svg, math) has its own title element; ignore it.
        if n.Namespace == "" {
            w.element(n)
        }
        if isHiddenText(n) {
            hidden = true
        }
    }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        w.walk(c, hidden)
    }
}

func (w *walker) element(n *html.Node) {
    switch n.Data {
    case "title":
        if !w.seenTitle {
            w.seenTitle = true
            t := strings.TrimSpace(textOf(n))
            w.res.Title = &t
        }
    case "meta":
        if w.seenMeta {
            return
        }
        if name, ok := attr(n, "name"); ok && name == "description" {
            w.seenMeta = true
            if content, ok := attr(n, "content"); ok {
                w.res.MetaDescription = &content
            }
        }
    case "h1", "h2", "h3", "h4", "h5", "h6":
        w.res.Headers = append(w.res.Headers, strings.TrimSpace(textOf(n)))
    case "a":
        href, ok := attr(n, "href")
        if !ok {
            return
        }
        // Plain substring test against the source URL; no normalization.
        if strings.Contains(href, w.res.SourceURL) {
            w.res.InternalLinks = append(w.res.InternalLinks, href)
        } else {
            w.res.ExternalLinks = append(w.res.ExternalLinks, href)
        }
    }
}

// isHiddenText reports elements whose text never renders as page content.
func isHiddenText(n *html.Node) bool {
    switch strings.ToLower(n.Data) {
    case "script", "style", "noscript", "template", "title":
        return true
    }
    return false
}

func attr(n *html.Node, key string) (string, bool) {
    for _, a := range n.Attr {
        if a.Namespace == "" && a.Key == key {
            return a.Val, true
        }
    }
    return "", false
}

func textOf(n *html.Node) string {
    var b strings.Builder
    var dfs func(*html.Node)
    dfs = func(cur *html.Node) {
        if cur.Type == html.TextNode {
            b.WriteString(cur.Data)
            return
        }
        if cur.Type == html.ElementNode && (cur.Data == "script" || cur.Data == "style") {
            return
        }
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            dfs(c)
        }
    }
    dfs(n)
    return b.String()
}
