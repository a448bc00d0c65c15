package extractor

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

// TEICoord is one layout box in page space: the page number plus the box
// origin and size in points, origin at the top left.
type TEICoord struct {
	Page       int
	X, Y, W, H float64
}

// TEIUnit is one sentence with its layout boxes.
type TEIUnit struct {
	Text   string
	Coords []TEICoord
}

// TEISection is one body division: a heading plus its sentence units.
type TEISection struct {
	Heading string
	Units   []TEIUnit
}

// TEIPage is a physical page surface in points.
type TEIPage struct {
	ULX, ULY, LRX, LRY float64
}

// TEIDocument is the parsed result of a full-text analysis.
type TEIDocument struct {
	Title    string
	DOI      string
	PubDate  string
	Abstract string
	Authors  []string
	Sections []TEISection
	Pages    map[int]TEIPage
}

// GrobidClient calls a GROBID server's full-text analysis endpoint.
type GrobidClient struct {
	service
}

// NewGrobidClient creates a client for the GROBID server at base.
func NewGrobidClient(base string, opts ...ClientOption) *GrobidClient {
	return &GrobidClient{service: newService(base, opts...)}
}

// ProcessFulltext submits the PDF for structure analysis and returns the
// parsed TEI result. Sentence segmentation and sentence-level coordinates
// are requested so chunks can carry layout boxes.
func (c *GrobidClient) ProcessFulltext(ctx context.Context, filename string, data []byte) (*TEIDocument, error) {
	body, contentType, err := multipartBody("input", filepath.Base(filename), data, [][2]string{
		{"consolidateHeader", "1"},
		{"segmentSentences", "1"},
		{"teiCoordinates", "p"},
		{"teiCoordinates", "s"},
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/api/processFulltextDocument", body, map[string]string{
		"Content-Type": contentType,
		"Accept":       "application/xml",
	})
	if err != nil {
		return nil, err
	}
	return parseTEI(resp)
}

// Wire model for the TEI vocabulary, mapped down to the fields the
// extractor consumes.
type teiFile struct {
	XMLName xml.Name  `xml:"TEI"`
	Header  teiHeader `xml:"teiHeader"`
	Facs    struct {
		Surfaces []teiSurface `xml:"surface"`
	} `xml:"facsimile"`
	Text struct {
		Body struct {
			Divs []teiDiv `xml:"div"`
		} `xml:"body"`
	} `xml:"text"`
}

type teiHeader struct {
	FileDesc struct {
		TitleStmt struct {
			Title string `xml:"title"`
		} `xml:"titleStmt"`
		PublicationStmt struct {
			Dates []teiDate `xml:"date"`
		} `xml:"publicationStmt"`
		SourceDesc struct {
			BiblStruct struct {
				Analytic struct {
					Authors []teiAuthor `xml:"author"`
					Idnos   []teiIdno   `xml:"idno"`
				} `xml:"analytic"`
				Monogr struct {
					Imprint struct {
						Dates []teiDate `xml:"date"`
					} `xml:"imprint"`
				} `xml:"monogr"`
				Idnos []teiIdno `xml:"idno"`
			} `xml:"biblStruct"`
		} `xml:"sourceDesc"`
	} `xml:"fileDesc"`
	ProfileDesc struct {
		Abstract flatText `xml:"abstract"`
	} `xml:"profileDesc"`
}

type teiAuthor struct {
	PersName struct {
		Forenames []string `xml:"forename"`
		Surname   string   `xml:"surname"`
	} `xml:"persName"`
}

type teiIdno struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type teiDate struct {
	Type string `xml:"type,attr"`
	When string `xml:"when,attr"`
}

type teiSurface struct {
	N   int     `xml:"n,attr"`
	ULX float64 `xml:"ulx,attr"`
	ULY float64 `xml:"uly,attr"`
	LRX float64 `xml:"lrx,attr"`
	LRY float64 `xml:"lry,attr"`
}

type teiDiv struct {
	Head       string `xml:"head"`
	Paragraphs []teiP `xml:"p"`
}

// teiP flattens one paragraph into sentence units. Sentences carry the
// coords attribute; a paragraph without sentence children becomes a single
// unit with the paragraph's own coords.
type teiP struct {
	Units []TEIUnit
}

func (p *teiP) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	coords := attrCoords(start)
	var plain strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "s" {
				unit, err := decodeSentence(d, t)
				if err != nil {
					return err
				}
				if unit.Text != "" {
					p.Units = append(p.Units, unit)
				}
				continue
			}
			// Inline markup such as refs keeps its text.
			text, err := collectText(d)
			if err != nil {
				return err
			}
			plain.WriteString(text)
		case xml.CharData:
			plain.Write(t)
		case xml.EndElement:
			// Nested end elements were consumed above; this one is </p>.
			if text := strings.TrimSpace(plain.String()); text != "" {
				p.Units = append(p.Units, TEIUnit{Text: text, Coords: coords})
			}
			return nil
		}
	}
}

// decodeSentence reads one <s> element: coords from the attribute, text
// flattened across inline markup.
func decodeSentence(d *xml.Decoder, start xml.StartElement) (TEIUnit, error) {
	unit := TEIUnit{Coords: attrCoords(start)}
	text, err := collectText(d)
	if err != nil {
		return unit, err
	}
	unit.Text = strings.TrimSpace(text)
	return unit, nil
}

// collectText accumulates all character data up to the end of the current
// element.
func collectText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return b.String(), nil
}

// flatText flattens an element's entire text content, nested markup
// included, with whitespace collapsed.
type flatText struct {
	Text string
}

func (f *flatText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	text, err := collectText(d)
	if err != nil {
		return err
	}
	f.Text = strings.Join(strings.Fields(text), " ")
	return nil
}

func attrCoords(start xml.StartElement) []TEICoord {
	for _, attr := range start.Attr {
		if attr.Name.Local == "coords" {
			return parseCoords(attr.Value)
		}
	}
	return nil
}

// parseCoords reads a coords attribute: semicolon-separated boxes of
// "page,x,y,w,h". Malformed boxes are skipped.
func parseCoords(s string) []TEICoord {
	var out []TEICoord
	for _, box := range strings.Split(s, ";") {
		parts := strings.Split(box, ",")
		if len(parts) != 5 {
			continue
		}
		page, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		var vals [4]float64
		ok := true
		for i, p := range parts[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		out = append(out, TEICoord{Page: page, X: vals[0], Y: vals[1], W: vals[2], H: vals[3]})
	}
	return out
}

// parseTEI maps a TEI response onto the document model.
func parseTEI(data []byte) (*TEIDocument, error) {
	var file teiFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("extractor: decode TEI: %w", err)
	}

	res := &TEIDocument{
		Title:    strings.TrimSpace(file.Header.FileDesc.TitleStmt.Title),
		Abstract: file.Header.ProfileDesc.Abstract.Text,
		Pages:    map[int]TEIPage{},
	}

	bibl := file.Header.FileDesc.SourceDesc.BiblStruct
	for _, idno := range append(bibl.Analytic.Idnos, bibl.Idnos...) {
		if strings.EqualFold(idno.Type, "doi") {
			res.DOI = strings.TrimSpace(idno.Value)
			break
		}
	}
	res.PubDate = firstPublishedDate(file.Header.FileDesc.PublicationStmt.Dates, bibl.Monogr.Imprint.Dates)

	for _, a := range bibl.Analytic.Authors {
		parts := append([]string{}, a.PersName.Forenames...)
		if a.PersName.Surname != "" {
			parts = append(parts, a.PersName.Surname)
		}
		if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
			res.Authors = append(res.Authors, name)
		}
	}

	for _, s := range file.Facs.Surfaces {
		res.Pages[s.N] = TEIPage{ULX: s.ULX, ULY: s.ULY, LRX: s.LRX, LRY: s.LRY}
	}

	for _, div := range file.Text.Body.Divs {
		sec := TEISection{Heading: strings.TrimSpace(div.Head)}
		for _, p := range div.Paragraphs {
			sec.Units = append(sec.Units, p.Units...)
		}
		if len(sec.Units) > 0 || sec.Heading != "" {
			res.Sections = append(res.Sections, sec)
		}
	}
	return res, nil
}

// firstPublishedDate prefers an explicitly published date over any other
// dated entry across the groups.
func firstPublishedDate(groups ...[]teiDate) string {
	for _, dates := range groups {
		for _, d := range dates {
			if strings.EqualFold(d.Type, "published") && d.When != "" {
				return d.When
			}
		}
	}
	for _, dates := range groups {
		for _, d := range dates {
			if d.When != "" {
				return d.When
			}
		}
	}
	return ""
}
