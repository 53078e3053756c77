package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const docxBodyPart = "word/document.xml"

var bodyExpr = xpath.MustCompile("//*[local-name()='body']")

const docxRootOpen = `<w:document` +
	` xmlns:wpc="http://schemas.microsoft.com/office/word/2010/wordprocessingCanvas"` +
	` xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"` +
	` xmlns:o="urn:schemas-microsoft-com:office:office"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
	` xmlns:m="http://schemas.openxmlformats.org/officeDocument/2006/math"` +
	` xmlns:v="urn:schemas-microsoft-com:vml"` +
	` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
	` xmlns:w10="urn:schemas-microsoft-com:office:word"` +
	` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
	` xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml"` +
	` xmlns:wpg="http://schemas.microsoft.com/office/word/2010/wordprocessingGroup"` +
	` xmlns:wps="http://schemas.microsoft.com/office/word/2010/wordprocessingShape"` +
	` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
	` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:spacing w:after="160" w:line="360" w:lineRule="auto"/><w:jc w:val="both"/></w:pPr><w:rPr><w:rFonts w:ascii="Times New Roman" w:hAnsi="Times New Roman"/><w:sz w:val="24"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:pPr><w:jc w:val="center"/></w:pPr><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:i/></w:rPr></w:style>
</w:styles>`

// WriteDOCX writes d as a minimal WordprocessingML package.
func WriteDOCX(path string, d Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := EncodeDOCX(&buf, d); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func EncodeDOCX(w io.Writer, d Document) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		name, body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{docxBodyPart, renderBody(d)},
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to create docx part %s: %w", p.name, err)
		}
		if _, err := io.WriteString(f, p.body); err != nil {
			return fmt.Errorf("failed to write docx part %s: %w", p.name, err)
		}
	}
	return zw.Close()
}

func renderBody(d Document) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(docxRootOpen)
	sb.WriteString("<w:body>")
	for _, b := range d.Blocks {
		if b.Raw != "" {
			sb.WriteString(b.Raw)
			continue
		}
		switch b.Kind {
		case KindBreak:
			sb.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		case KindHeading:
			writeParagraph(&sb, headingStyle(b.Level), b.Text)
		default:
			writeParagraph(&sb, b.Style, b.Text)
		}
	}
	sb.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1417" w:right="1701" w:bottom="1417" w:left="1701" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
	sb.WriteString("</w:body></w:document>")
	return sb.String()
}

func writeParagraph(sb *strings.Builder, style, text string) {
	sb.WriteString("<w:p>")
	if style != "" {
		sb.WriteString(`<w:pPr><w:pStyle w:val="`)
		xmlEscape(sb, style)
		sb.WriteString(`"/></w:pPr>`)
	}
	sb.WriteString("<w:r>")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			sb.WriteString("<w:br/>")
		}
		sb.WriteString(`<w:t xml:space="preserve">`)
		xmlEscape(sb, line)
		sb.WriteString("</w:t>")
	}
	sb.WriteString("</w:r></w:p>")
}

func xmlEscape(sb *strings.Builder, s string) {
	_ = xml.EscapeText(sb, []byte(s))
}

func headingStyle(level int) string {
	if level <= 0 {
		return "Title"
	}
	return "Heading" + strconv.Itoa(level)
}

// ReadDOCX loads the body of a .docx file. Paragraph styles decide headings;
// tables and other body elements become opaque blocks carrying their XML.
func ReadDOCX(path string) (Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to open docx %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Document{}, fmt.Errorf("failed to open %s in %s: %w", docxBodyPart, path, err)
		}
		defer rc.Close()
		return DecodeDOCXBody(rc)
	}
	return Document{}, fmt.Errorf("docx %s has no %s", path, docxBodyPart)
}

// DecodeDOCXBody parses the word/document.xml part.
func DecodeDOCXBody(r io.Reader) (Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse docx body: %w", err)
	}
	body := xmlquery.QuerySelector(root, bodyExpr)
	if body == nil {
		return Document{}, fmt.Errorf("docx body element not found")
	}

	var d Document
	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		switch n.Data {
		case "sectPr":
			continue
		case "p":
			d.Blocks = append(d.Blocks, paragraphBlock(n))
		default:
			d.Blocks = append(d.Blocks, Block{Kind: KindOpaque, Text: strings.TrimSpace(nodeText(n)), Raw: keepRaw(n)})
		}
	}
	return d, nil
}

func paragraphBlock(p *xmlquery.Node) Block {
	text := nodeText(p)
	style := paragraphStyle(p)
	raw := keepRaw(p)

	if strings.TrimSpace(text) == "" && hasPageBreak(p) {
		return Block{Kind: KindBreak, Raw: raw}
	}
	if level, ok := styleLevel(style); ok {
		return Block{Kind: KindHeading, Text: strings.TrimSpace(text), Level: level, Raw: raw}
	}
	return Block{Kind: KindParagraph, Text: text, Style: style, Raw: raw}
}

func paragraphStyle(p *xmlquery.Node) string {
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode || c.Data != "pPr" {
			continue
		}
		for s := c.FirstChild; s != nil; s = s.NextSibling {
			if s.Type == xmlquery.ElementNode && s.Data == "pStyle" {
				return attr(s, "val")
			}
		}
	}
	return ""
}

// styleLevel maps Word style ids (English and Spanish builds) to heading levels.
func styleLevel(style string) (int, bool) {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" || s == "ttulo" || s == "titulo" {
		return 0, true
	}
	for _, prefix := range []string{"heading", "ttulo", "titulo"} {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(s, prefix))
		if err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

func hasPageBreak(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if c.Data == "br" && attr(c, "type") == "page" {
			return true
		}
		if hasPageBreak(c) {
			return true
		}
	}
	return false
}

// nodeText concatenates w:t runs; line breaks and tabs are kept.
func nodeText(n *xmlquery.Node) string {
	var sb strings.Builder
	var walk func(*xmlquery.Node)
	walk = func(x *xmlquery.Node) {
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch c.Data {
			case "t":
				sb.WriteString(c.InnerText())
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				if attr(c, "type") != "page" {
					sb.WriteString("\n")
				}
			case "p":
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				walk(c)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}

// keepRaw returns the element XML when it can be re-emitted standalone.
// Elements referencing package relationships (images, hyperlinks) are dropped
// to text since their targets are not carried over, and so are elements using
// a namespace prefix the written root does not declare.
func keepRaw(n *xmlquery.Node) string {
	raw := n.OutputXML(true)
	if !strings.HasPrefix(raw, "<w:") {
		return ""
	}
	if strings.Contains(raw, "r:id=") || strings.Contains(raw, "r:embed=") {
		return ""
	}
	if !declaredOnly(n) {
		return ""
	}
	return raw
}

// rootNamespaces maps the prefixes declared by docxRootOpen to their URIs.
var rootNamespaces = func() map[string]string {
	ns := map[string]string{"xml": "http://www.w3.org/XML/1998/namespace"}
	doc, err := xmlquery.Parse(strings.NewReader(docxRootOpen + "</w:document>"))
	if err != nil {
		return ns
	}
	root := doc.SelectElement("document")
	if root == nil {
		return ns
	}
	for _, a := range root.Attr {
		if a.Name.Space == "xmlns" {
			ns[a.Name.Local] = a.Value
		}
	}
	return ns
}()

// declaredOnly reports whether every element, attribute and mc:Ignorable entry
// under n resolves against rootNamespaces.
func declaredOnly(n *xmlquery.Node) bool {
	if n.Type != xmlquery.ElementNode {
		return true
	}
	if !elementDeclared(n) {
		return false
	}
	for _, a := range n.Attr {
		switch a.Name.Space {
		case "", "xmlns":
			continue
		case "mc":
			if a.Name.Local == "Ignorable" {
				for _, p := range strings.Fields(a.Value) {
					if _, ok := rootNamespaces[p]; !ok {
						return false
					}
				}
			}
		}
		if uri, ok := rootNamespaces[a.Name.Space]; !ok || uri != a.NamespaceURI {
			return false
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !declaredOnly(c) {
			return false
		}
	}
	return true
}

func elementDeclared(n *xmlquery.Node) bool {
	if n.Prefix != "" {
		uri, ok := rootNamespaces[n.Prefix]
		return ok && uri == n.NamespaceURI
	}
	return n.NamespaceURI == ""
}

func attr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
