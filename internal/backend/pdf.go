package backend

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// rowTolerance is the baseline distance, in points, under which glyphs are
// treated as one line.
const rowTolerance = 2.0

var infoKeys = []string{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"}

// PDFDocument reads text and layout with ledongthuc/pdf and the outline with
// pdfcpu. Rendering for OCR shells out to pdftoppm.
type PDFDocument struct {
	name     string
	path     string
	tempPath string // removed on Close when the PDF was spooled from a reader
	file     *os.File
	reader   *pdflib.Reader
	pdftoppm string
}

// OpenPDF opens a PDF file on disk.
func OpenPDF(path, pdftoppm string) (*PDFDocument, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	return &PDFDocument{
		name:     filepath.Base(path),
		path:     path,
		file:     f,
		reader:   reader,
		pdftoppm: pdftoppm,
	}, nil
}

// ParsePDF spools r to a temp file, since the PDF reader needs random access.
func ParsePDF(r io.Reader, filename, pdftoppm string) (*PDFDocument, error) {
	tmp, err := os.CreateTemp("", "docinsight-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	d, err := OpenPDF(tmpPath, pdftoppm)
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	d.name = filename
	d.tempPath = tmpPath
	return d, nil
}

func (d *PDFDocument) Name() string   { return d.name }
func (d *PDFDocument) PageCount() int { return d.reader.NumPage() }

func (d *PDFDocument) Close() error {
	err := d.file.Close()
	if d.tempPath != "" {
		os.Remove(d.tempPath)
	}
	return err
}

// Outline flattens the bookmark tree depth-first; top-level bookmarks are
// level 1.
func (d *PDFDocument) Outline() ([]OutlineEntry, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bms, err := api.Bookmarks(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read bookmarks: %w", err)
	}

	var out []OutlineEntry
	var walk func(bms []pdfcpu.Bookmark, level int)
	walk = func(bms []pdfcpu.Bookmark, level int) {
		for _, bm := range bms {
			title := strings.TrimSpace(bm.Title)
			if title != "" {
				out = append(out, OutlineEntry{Level: level, Title: title, Page: bm.PageFrom})
			}
			walk(bm.Kids, level+1)
		}
	}
	walk(bms, 1)
	return out, nil
}

func (d *PDFDocument) page(i int) (pdflib.Page, error) {
	if i < 1 || i > d.reader.NumPage() {
		return pdflib.Page{}, fmt.Errorf("page %d out of range [1,%d]", i, d.reader.NumPage())
	}
	p := d.reader.Page(i)
	if p.V.IsNull() {
		return pdflib.Page{}, fmt.Errorf("page %d: missing page object", i)
	}
	return p, nil
}

func (d *PDFDocument) PageText(i int) (text string, err error) {
	p, err := d.page(i)
	if err != nil {
		return "", err
	}
	defer recoverPage(i, &err)
	return p.GetPlainText(nil)
}

// PageLines groups glyphs into lines by baseline and merges runs of the same
// font into spans.
func (d *PDFDocument) PageLines(i int) (lines []Line, err error) {
	p, err := d.page(i)
	if err != nil {
		return nil, err
	}
	_, height, _ := d.PageDimensions(i)
	defer recoverPage(i, &err)

	var glyphs []pdflib.Text
	for _, t := range p.Content().Text {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		glyphs = append(glyphs, t)
	}
	// Top of page first, then left to right.
	sort.SliceStable(glyphs, func(a, b int) bool {
		if math.Abs(glyphs[a].Y-glyphs[b].Y) > rowTolerance {
			return glyphs[a].Y > glyphs[b].Y
		}
		return glyphs[a].X < glyphs[b].X
	})

	var row []pdflib.Text
	flush := func() {
		if len(row) == 0 {
			return
		}
		line := Line{Y: height - row[0].Y, Spans: mergeSpans(row, height)}
		if strings.TrimSpace(line.Text()) != "" {
			lines = append(lines, line)
		}
		row = row[:0]
	}
	for _, g := range glyphs {
		if len(row) > 0 && math.Abs(row[0].Y-g.Y) > rowTolerance {
			flush()
		}
		row = append(row, g)
	}
	flush()
	return lines, nil
}

func mergeSpans(row []pdflib.Text, height float64) []Span {
	var spans []Span
	var cur *Span
	var lastEnd float64
	for _, g := range row {
		bold := isBoldFont(g.Font)
		if cur == nil || cur.Size != g.FontSize || cur.Bold != bold {
			spans = append(spans, Span{Size: g.FontSize, Bold: bold, X: g.X, Y: height - g.Y})
			cur = &spans[len(spans)-1]
		} else if gap := g.X - lastEnd; gap > g.FontSize*0.2 && !strings.HasSuffix(cur.Text, " ") {
			cur.Text += " "
		}
		cur.Text += g.S
		lastEnd = g.X + g.W
	}
	return spans
}

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	return strings.Contains(f, "bold") || strings.Contains(f, "black") || strings.Contains(f, "heavy")
}

// PageImages lists image XObjects referenced from the page resources.
func (d *PDFDocument) PageImages(i int) (images []Image, err error) {
	p, err := d.page(i)
	if err != nil {
		return nil, err
	}
	defer recoverPage(i, &err)

	xobjs := p.Resources().Key("XObject")
	if xobjs.Kind() != pdflib.Dict {
		return nil, nil
	}
	for _, name := range xobjs.Keys() {
		xo := xobjs.Key(name)
		if xo.Key("Subtype").Name() != "Image" {
			continue
		}
		images = append(images, Image{
			Width:  xo.Key("Width").Float64(),
			Height: xo.Key("Height").Float64(),
		})
	}
	return images, nil
}

// PageDimensions reads the MediaBox, following the Parent chain for
// inherited boxes.
func (d *PDFDocument) PageDimensions(i int) (float64, float64, error) {
	p, err := d.page(i)
	if err != nil {
		return 0, 0, err
	}
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() != pdflib.Array || box.Len() != 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		return math.Abs(w), math.Abs(h), nil
	}
	return 0, 0, nil
}

func (d *PDFDocument) Properties() Properties {
	trailer := d.reader.Trailer()
	meta := map[string]string{}
	info := trailer.Key("Info")
	for _, k := range infoKeys {
		if v := strings.TrimSpace(info.Key(k).Text()); v != "" {
			meta[strings.ToLower(k)] = v
		}
	}

	props := Properties{
		PageCount:   d.reader.NumPage(),
		Metadata:    meta,
		Permissions: -1,
	}
	if enc := trailer.Key("Encrypt"); !enc.IsNull() {
		props.IsEncrypted = true
		props.Permissions = int(enc.Key("P").Int64())
	}
	return props
}

// RenderPage rasterizes one page to PNG with pdftoppm.
func (d *PDFDocument) RenderPage(ctx context.Context, page, dpi int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "docinsight-render-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	n := strconv.Itoa(page)
	root := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, d.pdftoppm,
		"-f", n, "-l", n, "-r", strconv.Itoa(dpi), "-png", "-singlefile", d.path, root)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(out)))
	}
	return os.ReadFile(root + ".png")
}

// recoverPage turns a panic from a malformed content stream into an error.
func recoverPage(page int, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("page %d: malformed content: %v", page, r)
	}
}
