package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	pptxSlideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	atTag         = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
)

// extractPPTX returns the <a:t> text of every slide in slide-number order,
// slides separated by a paragraph break.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, f := range zr.File {
		m := pptxSlideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		data, err := readEntry(f)
		if err != nil {
			return "", err
		}
		var parts []string
		for _, p := range atTag.FindAllSubmatch(data, -1) {
			if t := strings.TrimSpace(unescapeXML(string(p[1]))); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			slides = append(slides, slide{num: num, text: strings.Join(parts, " ")})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })
	texts := make([]string, len(slides))
	for i, s := range slides {
		texts[i] = s.text
	}
	return strings.Join(texts, "\n\n"), nil
}
