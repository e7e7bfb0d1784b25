// Package report renders agent answers as simple PDF documents.
package report

import (
    "bufio"
    "fmt"
    "io"
    "regexp"
    "strings"
    "time"

    "github.com/jung-kurt/gofpdf"
)

var (
    linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
    sectionRe  = regexp.MustCompile(`^\d+\.?\s+\S`)
    boldWrapRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// Renderer lays out Markdown-ish text: '#' headings and numbered section
// titles in bold, "- " bullets indented, [text](url) links clickable.
type Renderer struct {
    // Compress toggles stream compression. Tests disable it to inspect output.
    Compress bool
    // Now stamps the footer; defaults to time.Now.
    Now func() time.Time
}

// Render writes a PDF with title and body to w.
func (r Renderer) Render(w io.Writer, title, body string) error {
    pdf := gofpdf.New("P", "mm", "A4", "")
    pdf.SetCompression(r.Compress)
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.SetTitle(title, true)
    pdf.SetCreator("agentcrew", true)

    now := time.Now
    if r.Now != nil {
        now = r.Now
    }
    stamp := now().UTC().Format("2006-01-02 15:04 MST")
    pdf.SetFooterFunc(func() {
        pdf.SetY(-12)
        pdf.SetFont("Helvetica", "I", 8)
        pdf.CellFormat(0, 6, fmt.Sprintf("%s  |  page %d", stamp, pdf.PageNo()), "", 0, "C", false, 0, "")
    })
    pdf.AddPage()

    pdf.SetFont("Helvetica", "B", 16)
    pdf.MultiCell(0, 8, tr(title), "", "L", false)
    pdf.Ln(4)
    pdf.SetFont("Helvetica", "", 11)

    scanner := bufio.NewScanner(strings.NewReader(body))
    scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
    for scanner.Scan() {
        s := strings.TrimSpace(scanner.Text())
        switch {
        case s == "":
            pdf.Ln(3)
        case strings.HasPrefix(s, "#"):
            level := len(s) - len(strings.TrimLeft(s, "#"))
            text := strings.TrimSpace(s[level:])
            if text == "" {
                continue
            }
            size := 14.0
            if level >= 2 {
                size = 12.0
            }
            heading(pdf, tr(stripBold(text)), size)
        case sectionRe.MatchString(s) && !strings.Contains(s, ": "):
            heading(pdf, tr(stripBold(s)), 12)
        case strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* "):
            pdf.SetX(pdf.GetX() + 5)
            writeInline(pdf, tr, "• "+s[2:])
        default:
            writeInline(pdf, tr, s)
        }
    }
    if err := scanner.Err(); err != nil {
        return fmt.Errorf("read body: %w", err)
    }
    if err := pdf.Output(w); err != nil {
        return fmt.Errorf("render pdf: %w", err)
    }
    return nil
}

func heading(pdf *gofpdf.Fpdf, text string, size float64) {
    pdf.Ln(2)
    pdf.SetFont("Helvetica", "B", size)
    pdf.MultiCell(0, 7, text, "", "L", false)
    pdf.SetFont("Helvetica", "", 11)
}

func stripBold(s string) string { return boldWrapRe.ReplaceAllString(s, "$1") }

// writeInline writes one paragraph, turning Markdown links into PDF links.
func writeInline(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
    s = stripBold(s)
    matches := linkRe.FindAllStringSubmatchIndex(s, -1)
    if len(matches) == 0 {
        pdf.MultiCell(0, 5, tr(s), "", "L", false)
        return
    }
    pos := 0
    for _, m := range matches {
        if m[0] > pos {
            pdf.Write(5, tr(s[pos:m[0]]))
        }
        text, url := s[m[2]:m[3]], s[m[4]:m[5]]
        if strings.HasPrefix(url, "#") {
            pdf.Write(5, tr(text))
        } else {
            pdf.WriteLinkString(5, tr(text), url)
        }
        pos = m[1]
    }
    if pos < len(s) {
        pdf.Write(5, tr(s[pos:]))
    }
    pdf.Ln(6)
}
