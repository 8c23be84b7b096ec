package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const odfContentPath = "content.xml"

// odfText matches leaf text:p, text:h and text:span elements in document order.
var odfText = regexp.MustCompile(`<text:(p|h|span)(?:\s[^>]*)?>([^<]*)</text:(?:p|h|span)>`)

// extractOpenDocument handles .odt, .odp and .ods, which all keep their body
// in content.xml. Each text element becomes one line.
func extractOpenDocument(content []byte, ext string) (string, error) {
	format := strings.ToUpper(strings.TrimPrefix(ext, "."))
	zr, err := openZip(content, format)
	if err != nil {
		return "", err
	}
	data, ok, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if !ok {
		return "", fmt.Errorf("extract %s: %s not found", format, odfContentPath)
	}
	var lines []string
	for _, m := range odfText.FindAllSubmatch(data, -1) {
		if t := strings.TrimSpace(unescapeXML(string(m[2]))); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n"), nil
}
