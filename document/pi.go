package document

import (
	"github.com/beevik/etree"
)

// pseudoAttrs parses pseudo-attributes of a processing instruction, which
// follow XML attribute syntax.
func pseudoAttrs(inst string) (map[string]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<pi " + inst + "/>"); err != nil {
		return nil, err
	}
	res := make(map[string]string, len(doc.Root().Attr))
	for _, a := range doc.Root().Attr {
		res[a.FullKey()] = a.Value
	}
	return res, nil
}
