package fragment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"faulttree/internal/model"
)

// Parse decodes a fragment body into its ordered node sequence and checks
// it against the node schema. Unknown fields are ignored.
func Parse(path model.FragmentPath, data []byte) ([]model.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &model.ParseError{Path: path, Err: errors.New("empty body")}
	}
	if trimmed[0] != '[' {
		return nil, &model.ParseError{Path: path, Err: errors.New("fragment must be a JSON array")}
	}

	var nodes []model.Node
	if err := json.Unmarshal(trimmed, &nodes); err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}
	if err := validate(nodes, "$"); err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}
	if nodes == nil {
		nodes = []model.Node{}
	}
	return nodes, nil
}

func validate(nodes []model.Node, at string) error {
	for i := range nodes {
		n := &nodes[i]
		where := fmt.Sprintf("%s[%d]", at, i)
		if !n.Type.Valid() {
			if n.Type == "" {
				return fmt.Errorf("%s: missing type", where)
			}
			return fmt.Errorf("%s: unknown type %q", where, n.Type)
		}
		if !n.IsFolder() {
			continue
		}
		if n.Children != nil && n.Source != "" {
			return fmt.Errorf("%s: folder %q has both children and source", where, n.Title)
		}
		if err := validate(n.Children, where+".children"); err != nil {
			return err
		}
	}
	return nil
}
