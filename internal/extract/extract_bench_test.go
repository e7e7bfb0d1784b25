package extract

import (
    "fmt"
    "strings"
    "testing"
)

// Benchmark FromHTML on representative HTML sizes and structures.
func BenchmarkFromHTML(b *testing.B) {
    small := []byte("<html><head><title>t</title></head><body><main><p>a</p></main></body></html>")
    medium := makeHTML(50, 60)
    large := makeHTML(200, 200)

    for _, tc := range []struct {
        name string
        page []byte
    }{{"small", small}, {"medium", medium}, {"large", large}} {
        b.Run(tc.name, func(b *testing.B) {
            for i := 0; i < b.N; i++ {
                _, _ = FromHTML("https://example.com", tc.page)
            }
        })
    }
}

func makeHTML(sections, linksPerSection int) []byte {
    var sb strings.Builder
    sb.WriteString("<html><head><title>bench</title><meta name=\"description\" content=\"d\"></head><body>")
    for i := 0; i < sections; i++ {
        fmt.Fprintf(&sb, "<h2>Section %d</h2><p>Paragraph %d with some words to collect.</p>", i, i)
        for j := 0; j < linksPerSection; j++ {
            if j%2 == 0 {
                fmt.Fprintf(&sb, "<a href=\"https://example.com/%d/%d\">in</a>", i, j)
            } else {
                fmt.Fprintf(&sb, "<a href=\"https://other.org/%d/%d\">out</a>", i, j)
            }
        }
    }
    sb.WriteString("</body></html>")
    return []byte(sb.String())
}
