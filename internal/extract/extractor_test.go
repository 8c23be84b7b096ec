package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/xuri/excelize/v2"
)

// zipOf builds an in-memory zip with the given entries.
func zipOf(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func docxBody(paragraphs ...string) string {
	s := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		s += `<w:p w:rsidR="00AB"><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`
	}
	return s + `</w:body></w:document>`
}

func TestExtractBytes_plain(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ext     string
		want    string
	}{
		{"text", "Hello world\nLine 2", ".txt", "Hello world\nLine 2"},
		{"utf8", "caf\xc3\xa9", ".md", "café"},
		{"invalid utf8", "hello\x80world", ".rst", "hello\uFFFDworld"},
		{"bom", "\xef\xbb\xbfBeumer", ".txt", "Beumer"},
		{"nfc", "cafe\u0301", ".txt", "caf\u00e9"},
		{"unknown extension", "raw content", ".xyz", "raw content"},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes([]byte(tt.content), tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docx(t *testing.T) {
	content := zipOf(t, map[string]string{
		"word/document.xml": docxBody("Beumer makes baggage systems.", "", "It operates in 60 countries &amp; more."),
	})
	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Beumer makes baggage systems.\nIt operates in 60 countries & more."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := zipOf(t, map[string]string{
				contentTypesPath:     `<?xml version="1.0"?><Types>` + tt.override + `</Types>`,
				"word/document2.xml": docxBody("Content from document2"),
			})
			got, err := NewExtractor().ExtractBytes(content, ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "Content from document2" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxMissingBody(t *testing.T) {
	content := zipOf(t, map[string]string{"docProps/core.xml": "<x/>"})
	if _, err := NewExtractor().ExtractBytes(content, ".docx"); err == nil {
		t.Error("expected error when document.xml is missing")
	}
}

func slideXML(text string) string {
	return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestExtractBytes_pptxSlideOrder(t *testing.T) {
	content := zipOf(t, map[string]string{
		"ppt/slides/slide10.xml":            slideXML("Tenth slide"),
		"ppt/slides/slide2.xml":             slideXML("Second slide"),
		"ppt/slides/slide1.xml":             slideXML("First slide"),
		"ppt/slides/_rels/slide1.xml.rels":  "<Relationships/>",
		"ppt/slideLayouts/slideLayout1.xml": slideXML("Layout"),
	})
	got, err := NewExtractor().ExtractBytes(content, ".pptx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if want := "First slide\n\nSecond slide\n\nTenth slide"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_pptxEmpty(t *testing.T) {
	content := zipOf(t, map[string]string{"ppt/slides/other.xml": "", "docProps/core.xml": ""})
	got, err := NewExtractor().ExtractBytes(content, ".pptx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_openDocument(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		xml  string
		want string
	}{
		{
			"odp title then body", ".odp",
			`<office:document><office:body><draw:page><text:h>Slide title</text:h><text:p>Body text</text:p></draw:page></office:body></office:document>`,
			"Slide title\nBody text",
		},
		{
			"ods cells", ".ods",
			`<office:document><office:body><table:table><table:table-row><table:table-cell><text:p>Cell A</text:p></table:table-cell><table:table-cell><text:p><text:span text:style-name="T1">Cell B</text:span></text:p></table:table-cell></table:table-row></table:table></office:body></office:document>`,
			"Cell A\nCell B",
		},
		{
			"odt paragraph", ".odt",
			`<office:document><office:body><office:text><text:p text:style-name="P1">Searchable odt content</text:p></office:text></office:body></office:document>`,
			"Searchable odt content",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := zipOf(t, map[string]string{odfContentPath: tt.xml})
			got, err := NewExtractor().ExtractBytes(content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_notZip(t *testing.T) {
	for _, ext := range []string{".docx", ".pptx", ".odp", ".ods"} {
		if _, err := NewExtractor().ExtractBytes([]byte("not a zip"), ext); err == nil {
			t.Errorf("%s: expected error for invalid archive", ext)
		}
	}
}

func TestExtractBytes_openDocumentContentNotFound(t *testing.T) {
	content := zipOf(t, map[string]string{"other.xml": ""})
	if _, err := NewExtractor().ExtractBytes(content, ".odp"); err == nil {
		t.Error("expected error when content.xml missing")
	}
}

func TestExtractBytes_invalidPDF(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("%PDF-garbage"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestExtract_excelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Searchable text")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Searchable text" {
		t.Errorf("got %q", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beumer.txt")
	if err := os.WriteFile(path, []byte("Beumer makes baggage systems."), 0600); err != nil {
		t.Fatal(err)
	}
	doc, err := NewExtractor().Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Path != path || doc.Text != "Beumer makes baggage systems." {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestLoad_DocumentErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte(" \n\t"), 0600); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.docx")
	if err := os.WriteFile(broken, []byte("not a zip"), 0600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.pdf")},
		{"empty", empty},
		{"undecodable", broken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor().Load(tt.path)
			if !errors.Is(err, errs.ErrDocument) {
				t.Errorf("expected ErrDocument, got %v", err)
			}
		})
	}
}
