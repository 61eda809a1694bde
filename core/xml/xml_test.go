package xml

import (
	"strings"
	"testing"
)

const sampleFB2 = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0" xmlns:l="http://www.w3.org/1999/xlink">
  <body xml:lang="ru">
    <section id="s1">
      <p>Начало <strong>жирный</strong> и <a l:href="#n1" type="note">1</a> конец</p>
      <p><![CDATA[сырой]]></p>
    </section>
  </body>
  <body name="notes"/>
</FictionBook>`

// TestParseValidXML verifies parsing of well-formed XML.
func TestParseValidXML(t *testing.T) {
	doc, err := Parse([]byte(sampleFB2))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	root := doc.Root()
	if root == nil {
		t.Fatal("Root() returned nil")
	}
	if root.Name() != "FictionBook" {
		t.Errorf("Root().Name() = %q, want FictionBook", root.Name())
	}
}

// TestParseInvalidXML verifies error handling for malformed XML.
func TestParseInvalidXML(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"unclosed tag", "<root><element></root>"},
		{"mismatched tags", "<root></other>"},
		{"invalid chars", "<root>\x00</root>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.xml))
			if err == nil {
				t.Error("Parse should fail for invalid XML")
			}
		})
	}
}

func TestParseLegacyCharset(t *testing.T) {
	// "Поэма" in windows-1251
	data := []byte("<?xml version=\"1.0\" encoding=\"windows-1251\"?><title>\xcf\xee\xfd\xec\xe0</title>")
	doc, err := ParseReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	if got := doc.Root().Text(); got != "Поэма" {
		t.Errorf("Text() = %q, want %q", got, "Поэма")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		xml   string
		valid bool
		line  int
	}{
		{"well formed", sampleFB2, true, 0},
		{"legacy charset", `<?xml version="1.0" encoding="windows-1251"?><a/>`, true, 0},
		{"unclosed", "<root><p></root>", false, 1},
		{"unclosed on a later line", "<root>\n  <p>text\n</root>\n", false, 3},
		{"entity", `<root>&custom;</root>`, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate([]byte(tt.xml))
			if result.Valid != tt.valid {
				t.Errorf("Validate().Valid = %v, want %v (errors: %v)", result.Valid, tt.valid, result.Errors)
			}
			if tt.valid {
				return
			}
			if len(result.Errors) == 0 {
				t.Fatal("Validate() reported invalid without errors")
			}
			if got := result.Errors[0].Line; got != tt.line {
				t.Errorf("Errors[0].Line = %d, want %d", got, tt.line)
			}
			if strings.Contains(result.Errors[0].Message, "line") {
				t.Errorf("Errors[0].Message = %q repeats the line", result.Errors[0].Message)
			}
		})
	}
}

func TestXPathDefaultNamespace(t *testing.T) {
	doc, err := Parse([]byte(sampleFB2))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	bodies, err := doc.XPath("/FictionBook/body")
	if err != nil {
		t.Fatalf("XPath failed: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("XPath(/FictionBook/body) = %d nodes, want 2", len(bodies))
	}

	notes, err := doc.XPathFirst(`/FictionBook/body[@name="notes"]`)
	if err != nil {
		t.Fatalf("XPathFirst failed: %v", err)
	}
	if notes == nil || notes.Attr("name") != "notes" {
		t.Errorf("XPathFirst(notes body) = %v", notes)
	}

	missing, err := doc.XPathFirst("/FictionBook/binary")
	if err != nil || missing != nil {
		t.Errorf("XPathFirst(binary) = %v, %v; want nil, nil", missing, err)
	}
}

func TestXPathInvalid(t *testing.T) {
	doc, _ := Parse([]byte(sampleFB2))
	if _, err := doc.XPath("//[bad"); err == nil {
		t.Error("XPath should fail on invalid expression")
	}
	if _, err := doc.XPathFirst("//[bad"); err == nil {
		t.Error("XPathFirst should fail on invalid expression")
	}
}

func TestNodesMixedContent(t *testing.T) {
	doc, _ := Parse([]byte(sampleFB2))
	p, err := doc.XPathFirst("//section/p")
	if err != nil || p == nil {
		t.Fatalf("XPathFirst(p) = %v, %v", p, err)
	}

	var got []string
	for _, n := range p.Nodes() {
		switch {
		case n.IsText():
			got = append(got, "text:"+n.Data())
		default:
			got = append(got, "elem:"+n.Name())
		}
	}
	want := []string{"text:Начало ", "elem:strong", "text: и ", "elem:a", "text: конец"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Nodes() = %q, want %q", got, want)
	}

	if len(p.Children()) != 2 {
		t.Errorf("Children() = %d, want 2", len(p.Children()))
	}
	if got := p.Text(); got != "Начало жирный и 1 конец" {
		t.Errorf("Text() = %q", got)
	}
}

func TestCDATA(t *testing.T) {
	doc, _ := Parse([]byte(sampleFB2))
	ps, _ := doc.XPath("//section/p")
	if len(ps) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(ps))
	}
	nodes := ps[1].Nodes()
	if len(nodes) != 1 || !nodes[0].IsText() || nodes[0].Data() != "сырой" {
		t.Errorf("CDATA paragraph nodes = %v", nodes)
	}
}

func TestAttributes(t *testing.T) {
	doc, _ := Parse([]byte(sampleFB2))
	a, _ := doc.XPathFirst("//a")
	if a == nil {
		t.Fatal("no link element")
	}

	if got := a.Attr("href"); got != "#n1" {
		t.Errorf("Attr(href) = %q, want #n1", got)
	}
	if got := a.Attr("type"); got != "note" {
		t.Errorf("Attr(type) = %q, want note", got)
	}
	if _, ok := a.LookupAttr("id"); ok {
		t.Error("LookupAttr(id) reported a missing attribute")
	}

	body, _ := doc.XPathFirst("/FictionBook/body")
	if got := body.NSAttr("xml", "lang"); got != "ru" {
		t.Errorf("NSAttr(xml, lang) = %q, want ru", got)
	}
	if got := body.Attr("lang"); got != "ru" {
		t.Errorf("Attr(lang) = %q, want ru", got)
	}
}

func TestNilNode(t *testing.T) {
	var n Node
	if n.Name() != "" || n.Text() != "" || n.Data() != "" || n.Line() != 0 {
		t.Error("zero Node should return empty values")
	}
	if n.Children() != nil || n.Nodes() != nil || n.Attr("href") != "" {
		t.Error("zero Node should have no children or attributes")
	}
	if n.IsText() {
		t.Error("zero Node should have no type")
	}
}
