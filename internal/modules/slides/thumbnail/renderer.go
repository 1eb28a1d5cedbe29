package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	canvasWidth  = 1280
	canvasHeight = 720
	thumbWidth   = 320
	thumbHeight  = 180
	maxBodyRunes = 420
)

var typeColors = map[string]color.NRGBA{
	"slide-introduction": {R: 0xfe, G: 0xf3, B: 0xc7, A: 0xff},
	"slide-activity":     {R: 0xdc, G: 0xfc, B: 0xe7, A: 0xff},
	"slide-summary":      {R: 0xe0, G: 0xe7, B: 0xff, A: 0xff},
}

// GGRenderer draws a text-only preview of the slide: title, body text and a
// slide-number badge, scaled down to thumbnail size. Render is safe for
// concurrent use; truetype faces are built per call.
type GGRenderer struct {
	font *truetype.Font
}

// NewGGRenderer loads a TrueType font from fontPath. An empty path uses the
// built-in bitmap face.
func NewGGRenderer(fontPath string) (*GGRenderer, error) {
	if strings.TrimSpace(fontPath) == "" {
		return &GGRenderer{}, nil
	}
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return &GGRenderer{font: parsed}, nil
}

// faceSet holds the faces for a single Render call.
type faceSet struct {
	title font.Face
	body  font.Face
	badge font.Face
}

func (r *GGRenderer) faces() (faceSet, func()) {
	if r.font == nil {
		// basicfont faces are read-only.
		return faceSet{title: basicfont.Face7x13, body: basicfont.Face7x13, badge: basicfont.Face7x13}, func() {}
	}
	face := func(size float64) font.Face {
		return truetype.NewFace(r.font, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	}
	fs := faceSet{title: face(60), body: face(30), badge: face(24)}
	return fs, func() {
		_ = fs.title.Close()
		_ = fs.body.Close()
		_ = fs.badge.Close()
	}
}

func (r *GGRenderer) Render(ctx context.Context, slideID, htmlContent string, slideNumber int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse slide html: %w", err)
	}
	ex := extractText(doc)
	if ex.title == "" && ex.body == "" {
		return "", fmt.Errorf("slide %s has no visible text", slideID)
	}

	faces, release := r.faces()
	defer release()

	dc := gg.NewContext(canvasWidth, canvasHeight)
	bg := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	if c, ok := typeColors[ex.typeClass]; ok {
		bg = c
	}
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, canvasWidth, canvasHeight)
	dc.Fill()

	const pad = 64.0
	ink := color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}

	badge := fmt.Sprintf("%d", slideNumber)
	dc.SetFontFace(faces.badge)
	bw, bh := dc.MeasureString(badge)
	dc.SetColor(ink)
	dc.DrawRoundedRectangle(canvasWidth-pad-bw-24, pad-bh-8, bw+24, bh+16, 10)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawString(badge, canvasWidth-pad-bw-12, pad)

	dc.SetColor(ink)
	y := pad + 40
	if ex.title != "" {
		dc.SetFontFace(faces.title)
		lines := dc.WordWrap(ex.title, canvasWidth-2*pad-bw-48)
		if len(lines) > 2 {
			lines = lines[:2]
		}
		for _, line := range lines {
			_, h := dc.MeasureString(line)
			y += h * 1.3
			dc.DrawString(line, pad, y)
		}
		y += 24
	}
	if ex.body != "" {
		dc.SetFontFace(faces.body)
		for _, line := range dc.WordWrap(ex.body, canvasWidth-2*pad) {
			_, h := dc.MeasureString(line)
			if y+h*1.45 > canvasHeight-pad {
				break
			}
			y += h * 1.45
			dc.DrawString(line, pad, y)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, thumbWidth, thumbHeight))
	src := dc.Image()
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

type extracted struct {
	title     string
	body      string
	typeClass string
}

func extractText(doc *html.Node) extracted {
	var (
		out      extracted
		docTitle string
		body     strings.Builder
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Title:
				docTitle = strings.TrimSpace(nodeText(n))
				return
			case atom.H1, atom.H2:
				if out.title == "" {
					out.title = collapse(nodeText(n))
					return
				}
			}
			if out.typeClass == "" {
				for _, a := range n.Attr {
					if a.Key != "class" {
						continue
					}
					for _, cls := range strings.Fields(a.Val) {
						if _, ok := typeColors[cls]; ok {
							out.typeClass = cls
						}
					}
				}
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if body.Len() > 0 {
					body.WriteByte(' ')
				}
				body.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if out.title == "" {
		out.title = collapse(docTitle)
	}
	out.body = collapse(body.String())
	if r := []rune(out.body); len(r) > maxBodyRunes {
		out.body = strings.TrimSpace(string(r[:maxBodyRunes])) + "…"
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
