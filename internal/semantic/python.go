package semantic

import (
	"regexp"
	"strings"

	"github.com/anthropics/codewatch/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// constantNamePattern matches CONSTANT_CASE names.
var constantNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// pythonCommentTypes are node types excluded from body hashing.
var pythonCommentTypes = map[string]bool{"comment": true}

// enumBaseNames are base-list markers that turn a Python class into an enum.
var enumBaseNames = []string{"Enum", "IntEnum", "StrEnum", "Flag", "IntFlag"}

// PythonIndexer extracts constructs from Python source code.
//
// It recognizes module-level variables and functions, classes (nested
// included), class fields, methods, and decorated definitions. Classes whose
// base list names an enum type are emitted with KindEnum.
type PythonIndexer struct {
	parser *parser.Parser
}

// NewPythonIndexer creates a Python indexer with its own parser instance.
func NewPythonIndexer() *PythonIndexer {
	p, err := parser.NewParser(parser.Python)
	if err != nil {
		// The Python grammar is compiled in; construction cannot fail.
		panic(err)
	}
	return &PythonIndexer{parser: p}
}

// Language returns parser.Python.
func (x *PythonIndexer) Language() parser.Language {
	return parser.Python
}

// IndexFile extracts all constructs from source.
func (x *PythonIndexer) IndexFile(source, path string) []Construct {
	result, err := x.parser.Parse([]byte(source))
	if err != nil {
		return nil
	}
	defer result.Close()

	hasErrors := result.HasErrors()
	src := result.Source

	var constructs []Construct
	root := result.Root
	for i := uint32(0); i < root.ChildCount(); i++ {
		child := root.Child(int(i))
		constructs = append(constructs, x.extractTopLevel(child, src, path, hasErrors)...)
	}
	return constructs
}

// extractTopLevel handles one statement at module scope.
func (x *PythonIndexer) extractTopLevel(node *sitter.Node, src []byte, path string, hasErrors bool) []Construct {
	switch node.Type() {
	case "expression_statement":
		if expr := firstChild(node); expr != nil && expr.Type() == "assignment" {
			if c := x.parseAssignment(expr, src, path, "", hasErrors); c != nil {
				return []Construct{*c}
			}
		}
	case "function_definition":
		if c := x.parseCallable(node, nil, src, path, "", KindFunction, hasErrors); c != nil {
			return []Construct{*c}
		}
	case "class_definition":
		return x.parseClass(node, nil, src, path, "", hasErrors)
	case "decorated_definition":
		for i := uint32(0); i < node.ChildCount(); i++ {
			inner := node.Child(int(i))
			switch inner.Type() {
			case "function_definition":
				if c := x.parseCallable(inner, node, src, path, "", KindFunction, hasErrors); c != nil {
					return []Construct{*c}
				}
			case "class_definition":
				return x.parseClass(inner, node, src, path, "", hasErrors)
			}
		}
	}
	return nil
}

// parseClass emits the container construct for a class plus its members.
func (x *PythonIndexer) parseClass(classNode, decoratedNode *sitter.Node, src []byte, path, parentQualname string, hasErrors bool) []Construct {
	name := nodeName(classNode, src)
	if name == "" {
		return nil
	}

	qualname := name
	if parentQualname != "" {
		qualname = parentQualname + "." + name
	}

	kind := KindClass
	var baseClasses []string
	basesText := ""
	if superclasses := classNode.ChildByFieldName("superclasses"); superclasses != nil {
		basesText = superclasses.Content(src)
		for _, enumName := range enumBaseNames {
			if strings.Contains(basesText, enumName) {
				kind = KindEnum
				break
			}
		}
		baseClasses = pythonBaseClasses(superclasses, src)
	}

	decorators := pythonDecorators(decoratedNode, src)

	// The base list doubles as the annotation component so inheritance
	// changes show up as interface changes.
	interfaceHash := interfaceDigest(kind, basesText, decorators, "", false)

	body := classNode.ChildByFieldName("body")
	bodyHash := bodyDigest(body, src, pythonCommentTypes)

	span := classNode
	if decoratedNode != nil {
		span = decoratedNode
	}

	constructs := []Construct{{
		Path:           path,
		Kind:           kind,
		Qualname:       qualname,
		StartLine:      int(span.StartPoint().Row) + 1,
		EndLine:        int(span.EndPoint().Row) + 1,
		DefinitionLine: int(classNode.StartPoint().Row) + 1,
		InterfaceHash:  interfaceHash,
		BodyHash:       bodyHash,
		BaseClasses:    baseClasses,
		HasParseError:  hasErrors,
	}}

	if body != nil {
		constructs = append(constructs, x.extractClassMembers(body, src, path, qualname, hasErrors)...)
	}
	return constructs
}

// extractClassMembers walks a class body for fields, methods, and nested
// classes.
func (x *PythonIndexer) extractClassMembers(body *sitter.Node, src []byte, path, classQualname string, hasErrors bool) []Construct {
	var constructs []Construct

	for i := uint32(0); i < body.ChildCount(); i++ {
		member := body.Child(int(i))

		switch member.Type() {
		case "expression_statement":
			if expr := firstChild(member); expr != nil && expr.Type() == "assignment" {
				if c := x.parseAssignment(expr, src, path, classQualname, hasErrors); c != nil {
					constructs = append(constructs, *c)
				}
			}
		case "function_definition":
			if c := x.parseCallable(member, nil, src, path, classQualname, KindMethod, hasErrors); c != nil {
				constructs = append(constructs, *c)
			}
		case "class_definition":
			constructs = append(constructs, x.parseClass(member, nil, src, path, classQualname, hasErrors)...)
		case "decorated_definition":
			for j := uint32(0); j < member.ChildCount(); j++ {
				inner := member.Child(int(j))
				switch inner.Type() {
				case "function_definition":
					if c := x.parseCallable(inner, member, src, path, classQualname, KindMethod, hasErrors); c != nil {
						constructs = append(constructs, *c)
					}
				case "class_definition":
					constructs = append(constructs, x.parseClass(inner, member, src, path, classQualname, hasErrors)...)
				}
			}
		}
	}

	return constructs
}

// parseAssignment handles NAME = value, NAME: type = value, and NAME: type.
func (x *PythonIndexer) parseAssignment(node *sitter.Node, src []byte, path, classQualname string, hasErrors bool) *Construct {
	var nameNode, typeNode, valueNode *sitter.Node

	if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
		nameNode = left
	}
	typeNode = node.ChildByFieldName("type")
	valueNode = node.ChildByFieldName("right")

	if nameNode == nil {
		for i := uint32(0); i < node.ChildCount(); i++ {
			if child := node.Child(int(i)); child.Type() == "identifier" {
				nameNode = child
				break
			}
		}
	}
	if valueNode == nil && typeNode != nil {
		// Annotated assignment: the value follows the "=" token.
		foundEquals := false
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			switch {
			case child.Type() == "=":
				foundEquals = true
			case foundEquals && child.Type() != ":" && child.Type() != "type":
				valueNode = child
			}
			if valueNode != nil {
				break
			}
		}
	}

	if nameNode == nil {
		return nil
	}

	name := nameNode.Content(src)
	qualname := name
	kind := KindVariable
	if classQualname != "" {
		qualname = classQualname + "." + name
		kind = KindField
	}

	role := ""
	if constantNamePattern.MatchString(name) {
		role = RoleConst
	}

	annotation := ""
	if typeNode != nil {
		annotation = typeNode.Content(src)
	}

	line := int(node.StartPoint().Row) + 1
	return &Construct{
		Path:           path,
		Kind:           kind,
		Qualname:       qualname,
		Role:           role,
		StartLine:      line,
		EndLine:        int(node.EndPoint().Row) + 1,
		DefinitionLine: line,
		InterfaceHash:  interfaceDigest(kind, annotation, nil, "", false),
		BodyHash:       bodyDigest(valueNode, src, pythonCommentTypes),
		HasParseError:  hasErrors,
	}
}

// parseCallable handles function and method definitions, decorated or not.
func (x *PythonIndexer) parseCallable(node, decoratedNode *sitter.Node, src []byte, path, classQualname string, kind Kind, hasErrors bool) *Construct {
	name := nodeName(node, src)
	if name == "" {
		return nil
	}

	qualname := name
	if classQualname != "" {
		qualname = classQualname + "." + name
	}

	decorators := pythonDecorators(decoratedNode, src)

	annotation := ""
	if returnType := node.ChildByFieldName("return_type"); returnType != nil {
		annotation = returnType.Content(src)
	}

	paramsNode := node.ChildByFieldName("parameters")
	params := normalizePythonParams(paramsNode, src)

	body := node.ChildByFieldName("body")

	span := node
	if decoratedNode != nil {
		span = decoratedNode
	}

	return &Construct{
		Path:           path,
		Kind:           kind,
		Qualname:       qualname,
		StartLine:      int(span.StartPoint().Row) + 1,
		EndLine:        int(span.EndPoint().Row) + 1,
		DefinitionLine: int(node.StartPoint().Row) + 1,
		InterfaceHash:  interfaceDigest(kind, annotation, decorators, params, paramsNode != nil),
		BodyHash:       bodyDigest(body, src, pythonCommentTypes),
		HasParseError:  hasErrors,
	}
}

// FindConstruct returns the construct with the exact qualname, or nil on
// zero or multiple matches.
func (x *PythonIndexer) FindConstruct(source, path, qualname string, kind Kind) *Construct {
	return findByQualname(x.IndexFile(source, path), qualname, kind)
}

// ContainerMembers returns the direct members of a container. Private
// members (leading underscore) are filtered unless includePrivate.
func (x *PythonIndexer) ContainerMembers(source, path, containerQualname string, includePrivate bool, preindexed []Construct) []Construct {
	constructs := preindexed
	if constructs == nil {
		constructs = x.IndexFile(source, path)
	}

	var members []Construct
	for _, c := range constructs {
		rel, ok := RelativeID(containerQualname, c.Qualname)
		if !ok {
			continue
		}
		if !includePrivate && strings.HasPrefix(rel, "_") {
			continue
		}
		members = append(members, c)
	}
	return members
}

// ExtractImports recognizes "import M [as L]", "from M import N [as L]",
// and relative imports. Leading dots of relative imports are preserved in
// the module string. Wildcard imports are skipped.
func (x *PythonIndexer) ExtractImports(source string) map[string]Import {
	result, err := x.parser.Parse([]byte(source))
	if err != nil {
		return map[string]Import{}
	}
	defer result.Close()

	src := result.Source
	imports := map[string]Import{}

	root := result.Root
	for i := uint32(0); i < root.ChildCount(); i++ {
		stmt := root.Child(int(i))
		switch stmt.Type() {
		case "import_statement":
			for j := uint32(0); j < stmt.ChildCount(); j++ {
				child := stmt.Child(int(j))
				switch child.Type() {
				case "dotted_name":
					module := child.Content(src)
					imports[module] = Import{Module: module, Name: lastDotted(module)}
				case "aliased_import":
					nameNode := child.ChildByFieldName("name")
					aliasNode := child.ChildByFieldName("alias")
					if nameNode == nil || aliasNode == nil {
						continue
					}
					module := nameNode.Content(src)
					imports[aliasNode.Content(src)] = Import{Module: module, Name: lastDotted(module)}
				}
			}
		case "import_from_statement":
			moduleNode := stmt.ChildByFieldName("module_name")
			if moduleNode == nil {
				continue
			}
			module := moduleNode.Content(src)

			for j := uint32(0); j < stmt.ChildCount(); j++ {
				child := stmt.Child(int(j))
				if child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
					continue
				}
				switch child.Type() {
				case "dotted_name":
					name := child.Content(src)
					imports[name] = Import{Module: module, Name: name}
				case "aliased_import":
					nameNode := child.ChildByFieldName("name")
					aliasNode := child.ChildByFieldName("alias")
					if nameNode == nil || aliasNode == nil {
						continue
					}
					imports[aliasNode.Content(src)] = Import{Module: module, Name: nameNode.Content(src)}
				}
			}
		}
	}

	return imports
}

// pythonBaseClasses extracts base names from a superclasses argument_list,
// skipping keyword arguments such as metaclass=...
func pythonBaseClasses(superclasses *sitter.Node, src []byte) []string {
	var bases []string
	for i := uint32(0); i < superclasses.ChildCount(); i++ {
		child := superclasses.Child(int(i))
		switch child.Type() {
		case "identifier", "attribute":
			bases = append(bases, child.Content(src))
		case "subscript":
			// Generic[T] contributes the subscripted value.
			if value := child.ChildByFieldName("value"); value != nil {
				bases = append(bases, value.Content(src))
			}
		}
	}
	return bases
}

// pythonDecorators collects decorator text from a decorated_definition
// wrapper. Returns nil when the definition is not decorated.
func pythonDecorators(decoratedNode *sitter.Node, src []byte) []string {
	if decoratedNode == nil {
		return nil
	}
	var decorators []string
	for i := uint32(0); i < decoratedNode.ChildCount(); i++ {
		child := decoratedNode.Child(int(i))
		if child.Type() == "decorator" {
			decorators = append(decorators, child.Content(src))
		}
	}
	return decorators
}

// normalizePythonParams renders a parameters node as the comma-joined list
// of each parameter's source text with collapsed whitespace. Defaults and
// splat forms are kept.
func normalizePythonParams(paramsNode *sitter.Node, src []byte) string {
	if paramsNode == nil {
		return ""
	}
	var parts []string
	for i := uint32(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(int(i))
		switch child.Type() {
		case "identifier", "typed_parameter", "default_parameter",
			"typed_default_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			parts = append(parts, collapseWhitespace(child.Content(src)))
		}
	}
	return strings.Join(parts, ",")
}

// findByQualname returns the single construct matching qualname (and kind,
// when non-empty), or nil.
func findByQualname(constructs []Construct, qualname string, kind Kind) *Construct {
	var match *Construct
	for i := range constructs {
		c := &constructs[i]
		if c.Qualname != qualname {
			continue
		}
		if kind != "" && c.Kind != kind {
			continue
		}
		if match != nil {
			return nil // ambiguous
		}
		match = c
	}
	if match == nil {
		return nil
	}
	out := *match
	return &out
}

// firstChild returns the first child of a node, or nil.
func firstChild(node *sitter.Node) *sitter.Node {
	if node.ChildCount() == 0 {
		return nil
	}
	return node.Child(0)
}

// nodeName returns the text of a node's name field.
func nodeName(node *sitter.Node, src []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return nameNode.Content(src)
}

// lastDotted returns the final component of a dotted name.
func lastDotted(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
