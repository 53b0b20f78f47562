package lower

import "testing"

func TestParseJSONASTBuildsNavigableTree(t *testing.T) {
	data := []byte(`{
		"category": "CompilationUnit",
		"startLine": 1,
		"endLine": 3,
		"text": "",
		"children": {
			"classes": [{
				"category": "Class",
				"startLine": 1,
				"endLine": 3,
				"text": "C",
				"children": {
					"methods": [{
						"category": "Method",
						"startLine": 1,
						"endLine": 3,
						"text": "f"
					}]
				}
			}]
		}
	}`)

	root, err := ParseJSONAST(data)
	if err != nil {
		t.Fatalf("ParseJSONAST: %v", err)
	}
	if root.Category() != "CompilationUnit" {
		t.Fatalf("want category CompilationUnit, got %s", root.Category())
	}

	classes := root.Children("classes")
	if len(classes) != 1 {
		t.Fatalf("want 1 class, got %d", len(classes))
	}
	methods := classes[0].Children("methods")
	if len(methods) != 1 || methods[0].Text() != "f" {
		t.Fatalf("want method named f, got %+v", methods)
	}
	if _, ok := methods[0].ResolveReceiverType(); ok {
		t.Fatal("expected no receiver type without a receiverType field")
	}
}

func TestParseJSONASTResolvesReceiverType(t *testing.T) {
	data := []byte(`{
		"category": "MethodInvocation",
		"startLine": 1,
		"endLine": 1,
		"text": "info",
		"receiverType": "org.slf4j.Logger"
	}`)

	node, err := ParseJSONAST(data)
	if err != nil {
		t.Fatalf("ParseJSONAST: %v", err)
	}
	typ, ok := node.ResolveReceiverType()
	if !ok || typ != "org.slf4j.Logger" {
		t.Fatalf("want resolved receiver type org.slf4j.Logger, got %q (ok=%v)", typ, ok)
	}
}

func TestParseJSONASTRejectsMalformedInput(t *testing.T) {
	if _, err := ParseJSONAST([]byte("not json")); err == nil {
		t.Fatal("expected an error decoding malformed JSON")
	}
}
