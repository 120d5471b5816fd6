package navigator

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Query evaluates a JSONPath expression against the exported tree, e.g.
// `$..[?(@.type == 'page')].title`.
func Query(nodes []ExportNode, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}

	data, err := json.Marshal(nodes)
	if err != nil {
		return nil, err
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, err
	}
	results := x.Get(doc)
	if results == nil {
		results = []any{}
	}
	return results, nil
}
