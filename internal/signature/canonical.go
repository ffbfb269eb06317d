// Package signature implements the prescription signing digest and the
// signature verification pipeline: exclusive XML canonicalization, hashing,
// X.509 chain, revocation and temporal checks.
package signature

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Canonicalize renders an XML document in exclusive canonical form
// (http://www.w3.org/2001/10/xml-exc-c14n#): no XML declaration, no
// comments, attributes sorted with namespace declarations first, empty
// elements written as start/end pairs, and canonical character escaping.
func Canonicalize(document string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(document))
	var out bytes.Buffer
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("signature: parsing XML: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			writeStartElement(&out, t)
		case xml.EndElement:
			out.WriteString("</")
			out.WriteString(qualifiedName(t.Name))
			out.WriteString(">")
		case xml.CharData:
			writeEscapedText(&out, string(t))
		case xml.ProcInst, xml.Comment, xml.Directive:
			// dropped in canonical form
		}
	}
	return out.String(), nil
}

func writeStartElement(out *bytes.Buffer, element xml.StartElement) {
	out.WriteString("<")
	out.WriteString(qualifiedName(element.Name))

	attributes := make([]xml.Attr, len(element.Attr))
	copy(attributes, element.Attr)
	sort.SliceStable(attributes, func(i, j int) bool {
		left, right := attributes[i], attributes[j]
		leftNS, rightNS := isNamespaceDeclaration(left.Name), isNamespaceDeclaration(right.Name)
		if leftNS != rightNS {
			return leftNS
		}
		if left.Name.Space != right.Name.Space {
			return left.Name.Space < right.Name.Space
		}
		return left.Name.Local < right.Name.Local
	})

	for _, attribute := range attributes {
		out.WriteString(" ")
		out.WriteString(attributeName(attribute.Name))
		out.WriteString(`="`)
		writeEscapedAttribute(out, attribute.Value)
		out.WriteString(`"`)
	}
	out.WriteString(">")
}

func isNamespaceDeclaration(name xml.Name) bool {
	return name.Local == "xmlns" || name.Space == "xmlns"
}

// qualifiedName renders an element name. The decoder resolves default
// namespaces into Name.Space; the prefix itself is carried by the xmlns
// attribute, so only the local name is written.
func qualifiedName(name xml.Name) string {
	return name.Local
}

func attributeName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	if name.Space == "xmlns" {
		return "xmlns:" + name.Local
	}
	return name.Space + ":" + name.Local
}

func writeEscapedText(out *bytes.Buffer, text string) {
	for _, r := range text {
		switch r {
		case '&':
			out.WriteString("&amp;")
		case '<':
			out.WriteString("&lt;")
		case '>':
			out.WriteString("&gt;")
		case '\r':
			out.WriteString("&#xD;")
		default:
			out.WriteRune(r)
		}
	}
}

func writeEscapedAttribute(out *bytes.Buffer, value string) {
	for _, r := range value {
		switch r {
		case '&':
			out.WriteString("&amp;")
		case '<':
			out.WriteString("&lt;")
		case '"':
			out.WriteString("&quot;")
		case '\t':
			out.WriteString("&#x9;")
		case '\n':
			out.WriteString("&#xA;")
		case '\r':
			out.WriteString("&#xD;")
		default:
			out.WriteRune(r)
		}
	}
}
