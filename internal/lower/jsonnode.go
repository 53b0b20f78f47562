package lower

import "encoding/json"

// jsonNode is a directly-serializable implementation of Node: the shape
// cmd/pdgcli's -f flag reads from disk in place of a real parser. No
// grammar parser is fabricated for the analyzed language here, so the
// CLI's input format is a JSON document shaped exactly like this struct
// rather than source text — the same Node tree test fixtures already
// build by hand, just arriving over encoding/json instead of Go
// literals.
type jsonNode struct {
	CategoryField string                 `json:"category"`
	StartLine     int                    `json:"startLine"`
	EndLine       int                    `json:"endLine"`
	TextField     string                 `json:"text"`
	ReceiverType  *string                `json:"receiverType,omitempty"`
	ChildrenField map[string][]*jsonNode `json:"children,omitempty"`
}

func (n *jsonNode) Category() string { return n.CategoryField }
func (n *jsonNode) Span() (int, int) { return n.StartLine, n.EndLine }
func (n *jsonNode) Text() string     { return n.TextField }

func (n *jsonNode) ResolveReceiverType() (string, bool) {
	if n.ReceiverType == nil {
		return "", false
	}
	return *n.ReceiverType, true
}

func (n *jsonNode) Children(role string) []Node {
	kids := n.ChildrenField[role]
	if kids == nil {
		return nil
	}
	out := make([]Node, len(kids))
	for i, k := range kids {
		out[i] = k
	}
	return out
}

// ParseJSONAST decodes data into a Node tree. data must match jsonNode's
// shape: {"category", "startLine", "endLine", "text", "receiverType"?,
// "children": {"<role>": [...]}}.
func ParseJSONAST(data []byte) (Node, error) {
	var n jsonNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
