package semantic

import (
	"strings"

	"github.com/anthropics/codewatch/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// javaCommentTypes are node types excluded from body hashing.
var javaCommentTypes = map[string]bool{
	"line_comment":  true,
	"block_comment": true,
}

// JavaIndexer extracts constructs from Java source code.
//
// It recognizes class, interface, and enum declarations (nested included),
// fields with one construct per declarator, methods and constructors with
// overload-safe "name(T1,T2)" qualnames, and enum constants as const fields.
// Annotations and modifier keywords both contribute to interface hashes.
type JavaIndexer struct {
	parser *parser.Parser
}

// NewJavaIndexer creates a Java indexer with its own parser instance.
func NewJavaIndexer() *JavaIndexer {
	p, err := parser.NewParser(parser.Java)
	if err != nil {
		// The Java grammar is compiled in; construction cannot fail.
		panic(err)
	}
	return &JavaIndexer{parser: p}
}

// Language returns parser.Java.
func (x *JavaIndexer) Language() parser.Language {
	return parser.Java
}

// IndexFile extracts all constructs from source.
func (x *JavaIndexer) IndexFile(source, path string) []Construct {
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
		constructs = append(constructs,
			x.extractDeclaration(root.Child(int(i)), src, path, hasErrors, nil)...)
	}
	return constructs
}

// extractDeclaration dispatches on declaration node type.
func (x *JavaIndexer) extractDeclaration(node *sitter.Node, src []byte, path string, hasErrors bool, scope []string) []Construct {
	switch node.Type() {
	case "class_declaration":
		return x.extractType(node, src, path, hasErrors, scope, KindClass)
	case "interface_declaration":
		return x.extractType(node, src, path, hasErrors, scope, KindInterface)
	case "enum_declaration":
		return x.extractEnum(node, src, path, hasErrors, scope)
	case "field_declaration":
		return x.extractField(node, src, path, hasErrors, scope)
	case "method_declaration", "constructor_declaration":
		if c := x.extractCallable(node, src, path, hasErrors, scope); c != nil {
			return []Construct{*c}
		}
	}
	return nil
}

// extractType handles class and interface declarations and their members.
func (x *JavaIndexer) extractType(node *sitter.Node, src []byte, path string, hasErrors bool, scope []string, kind Kind) []Construct {
	name := nodeName(node, src)
	if name == "" {
		return nil
	}

	qualname := qualify(scope, name)

	decorators := javaAnnotations(node, src)
	modifiers := javaModifiers(node, src)

	superclass := node.ChildByFieldName("superclass")
	interfaces := node.ChildByFieldName("interfaces")
	baseClasses := javaBaseClasses(superclass, interfaces, src)

	var parts []string
	if superclass != nil {
		parts = append(parts, "extends "+superclass.Content(src))
	}
	if interfaces != nil {
		parts = append(parts, interfaces.Content(src))
	}
	annotation := strings.Join(parts, " ")

	interfaceHash := interfaceDigest(kind, annotation, append(modifiers, decorators...), "", false)
	bodyHash := bodyDigest(nil, src, javaCommentTypes)

	line := int(node.StartPoint().Row) + 1
	constructs := []Construct{{
		Path:           path,
		Kind:           kind,
		Qualname:       qualname,
		StartLine:      line,
		EndLine:        int(node.EndPoint().Row) + 1,
		DefinitionLine: javaDefinitionLine(node),
		InterfaceHash:  interfaceHash,
		BodyHash:       bodyHash,
		BaseClasses:    baseClasses,
		HasParseError:  hasErrors,
	}}

	if body := node.ChildByFieldName("body"); body != nil {
		inner := childScope(scope, name)
		for i := uint32(0); i < body.ChildCount(); i++ {
			constructs = append(constructs,
				x.extractDeclaration(body.Child(int(i)), src, path, hasErrors, inner)...)
		}
	}
	return constructs
}

// extractEnum handles enum declarations, their constants, and other members.
func (x *JavaIndexer) extractEnum(node *sitter.Node, src []byte, path string, hasErrors bool, scope []string) []Construct {
	name := nodeName(node, src)
	if name == "" {
		return nil
	}

	qualname := qualify(scope, name)

	decorators := javaAnnotations(node, src)
	modifiers := javaModifiers(node, src)

	// Enums cannot extend, but they can implement interfaces.
	interfaces := node.ChildByFieldName("interfaces")
	baseClasses := javaBaseClasses(nil, interfaces, src)

	annotation := ""
	if interfaces != nil {
		annotation = interfaces.Content(src)
	}

	interfaceHash := interfaceDigest(KindEnum, annotation, append(modifiers, decorators...), "", false)
	bodyHash := bodyDigest(nil, src, javaCommentTypes)

	line := int(node.StartPoint().Row) + 1
	constructs := []Construct{{
		Path:           path,
		Kind:           KindEnum,
		Qualname:       qualname,
		StartLine:      line,
		EndLine:        int(node.EndPoint().Row) + 1,
		DefinitionLine: javaDefinitionLine(node),
		InterfaceHash:  interfaceHash,
		BodyHash:       bodyHash,
		BaseClasses:    baseClasses,
		HasParseError:  hasErrors,
	}}

	if body := node.ChildByFieldName("body"); body != nil {
		inner := childScope(scope, name)
		for i := uint32(0); i < body.ChildCount(); i++ {
			child := body.Child(int(i))
			if child.Type() == "enum_constant" {
				if c := x.extractEnumConstant(child, src, path, hasErrors, inner); c != nil {
					constructs = append(constructs, *c)
				}
				continue
			}
			if child.Type() == "enum_body_declarations" {
				for j := uint32(0); j < child.ChildCount(); j++ {
					constructs = append(constructs,
						x.extractDeclaration(child.Child(int(j)), src, path, hasErrors, inner)...)
				}
				continue
			}
			constructs = append(constructs,
				x.extractDeclaration(child, src, path, hasErrors, inner)...)
		}
	}
	return constructs
}

// extractEnumConstant emits an enum constant as a field with the const role.
func (x *JavaIndexer) extractEnumConstant(node *sitter.Node, src []byte, path string, hasErrors bool, scope []string) *Construct {
	name := nodeName(node, src)
	if name == "" {
		return nil
	}

	qualname := qualify(scope, name)
	decorators := javaAnnotations(node, src)

	// Constructor arguments are the constant's value.
	arguments := node.ChildByFieldName("arguments")

	line := int(node.StartPoint().Row) + 1
	return &Construct{
		Path:           path,
		Kind:           KindField,
		Qualname:       qualname,
		Role:           RoleConst,
		StartLine:      line,
		EndLine:        int(node.EndPoint().Row) + 1,
		DefinitionLine: line,
		InterfaceHash:  interfaceDigest(KindField, "", decorators, "", false),
		BodyHash:       bodyDigest(arguments, src, javaCommentTypes),
		HasParseError:  hasErrors,
	}
}

// extractField handles field declarations, emitting one construct per
// declarator. Every declarator shares the declaration's span.
func (x *JavaIndexer) extractField(node *sitter.Node, src []byte, path string, hasErrors bool, scope []string) []Construct {
	annotation := ""
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		annotation = typeNode.Content(src)
	}

	decorators := javaAnnotations(node, src)
	modifiers := javaModifiers(node, src)

	isConst := containsString(modifiers, "static") && containsString(modifiers, "final")

	var constructs []Construct
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() != "variable_declarator" {
			continue
		}
		name := nodeName(child, src)
		if name == "" {
			continue
		}

		role := ""
		if isConst {
			role = RoleConst
		}

		line := int(node.StartPoint().Row) + 1
		constructs = append(constructs, Construct{
			Path:           path,
			Kind:           KindField,
			Qualname:       qualify(scope, name),
			Role:           role,
			StartLine:      line,
			EndLine:        int(node.EndPoint().Row) + 1,
			DefinitionLine: line,
			InterfaceHash:  interfaceDigest(KindField, annotation, append(modifiers, decorators...), "", false),
			BodyHash:       bodyDigest(child.ChildByFieldName("value"), src, javaCommentTypes),
			HasParseError:  hasErrors,
		})
	}
	return constructs
}

// extractCallable handles method and constructor declarations.
func (x *JavaIndexer) extractCallable(node *sitter.Node, src []byte, path string, hasErrors bool, scope []string) *Construct {
	name := nodeName(node, src)
	if name == "" {
		return nil
	}

	paramsNode := node.ChildByFieldName("parameters")
	paramTypes := javaParamTypes(paramsNode, src)
	qualname := qualify(scope, name+"("+strings.Join(paramTypes, ",")+")")

	decorators := javaAnnotations(node, src)
	modifiers := javaModifiers(node, src)

	var annotationParts []string
	if node.Type() == "method_declaration" {
		returnText := "void"
		if returnType := node.ChildByFieldName("type"); returnType != nil {
			returnText = returnType.Content(src)
		}
		annotationParts = append(annotationParts, returnText)
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if child := node.Child(int(i)); child.Type() == "throws" {
			annotationParts = append(annotationParts, child.Content(src))
			break
		}
	}

	body := node.ChildByFieldName("body")

	line := int(node.StartPoint().Row) + 1
	return &Construct{
		Path:           path,
		Kind:           KindMethod,
		Qualname:       qualname,
		StartLine:      line,
		EndLine:        int(node.EndPoint().Row) + 1,
		DefinitionLine: line,
		InterfaceHash: interfaceDigest(KindMethod, strings.Join(annotationParts, " "),
			append(modifiers, decorators...), strings.Join(paramTypes, ","), paramsNode != nil),
		BodyHash:      bodyDigest(body, src, javaCommentTypes),
		HasParseError: hasErrors,
	}
}

// FindConstruct returns the construct with the exact qualname, or nil on
// zero or multiple matches.
func (x *JavaIndexer) FindConstruct(source, path, qualname string, kind Kind) *Construct {
	return findByQualname(x.IndexFile(source, path), qualname, kind)
}

// ContainerMembers returns the direct members of a container. Java has
// visibility modifiers instead of naming conventions, so includePrivate is
// ignored and all members are returned.
func (x *JavaIndexer) ContainerMembers(source, path, containerQualname string, includePrivate bool, preindexed []Construct) []Construct {
	constructs := preindexed
	if constructs == nil {
		constructs = x.IndexFile(source, path)
	}

	var members []Construct
	for _, c := range constructs {
		if _, ok := RelativeID(containerQualname, c.Qualname); ok {
			members = append(members, c)
		}
	}
	return members
}

// ExtractImports recognizes non-wildcard, non-static imports. The map is
// keyed by the simple class name; the module is the full package path.
func (x *JavaIndexer) ExtractImports(source string) map[string]Import {
	result, err := x.parser.Parse([]byte(source))
	if err != nil {
		return map[string]Import{}
	}
	defer result.Close()

	src := result.Source
	imports := map[string]Import{}

	root := result.Root
	for i := uint32(0); i < root.ChildCount(); i++ {
		decl := root.Child(int(i))
		if decl.Type() != "import_declaration" {
			continue
		}

		skip := false
		for j := uint32(0); j < decl.ChildCount(); j++ {
			switch decl.Child(int(j)).Type() {
			case "static", "asterisk":
				skip = true
			}
		}
		if skip {
			continue
		}

		for j := uint32(0); j < decl.ChildCount(); j++ {
			child := decl.Child(int(j))
			switch child.Type() {
			case "scoped_identifier":
				fullPath := child.Content(src)
				simple := lastDotted(fullPath)
				imports[simple] = Import{Module: fullPath, Name: simple}
			case "identifier":
				name := child.Content(src)
				imports[name] = Import{Module: name, Name: name}
			}
		}
	}

	return imports
}

// javaAnnotations collects annotation text, looking both at direct children
// and inside a modifiers wrapper.
func javaAnnotations(node *sitter.Node, src []byte) []string {
	var annotations []string
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		switch child.Type() {
		case "marker_annotation", "annotation":
			annotations = append(annotations, child.Content(src))
		case "modifiers":
			for j := uint32(0); j < child.ChildCount(); j++ {
				mod := child.Child(int(j))
				if mod.Type() == "marker_annotation" || mod.Type() == "annotation" {
					annotations = append(annotations, mod.Content(src))
				}
			}
		}
	}
	return annotations
}

// javaModifiers collects modifier keywords (public, static, final, ...)
// from a modifiers wrapper, annotations excluded.
func javaModifiers(node *sitter.Node, src []byte) []string {
	var modifiers []string
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() != "modifiers" {
			continue
		}
		for j := uint32(0); j < child.ChildCount(); j++ {
			mod := child.Child(int(j))
			if mod.Type() == "marker_annotation" || mod.Type() == "annotation" {
				continue
			}
			if text := mod.Content(src); text != "" {
				modifiers = append(modifiers, text)
			}
		}
	}
	return modifiers
}

// javaParamTypes extracts parameter type names for overload-safe qualnames:
// spaces removed, generics kept, "..." appended for varargs.
func javaParamTypes(paramsNode *sitter.Node, src []byte) []string {
	if paramsNode == nil {
		return nil
	}

	var types []string
	for i := uint32(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(int(i))
		switch child.Type() {
		case "formal_parameter":
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				types = append(types, strings.ReplaceAll(typeNode.Content(src), " ", ""))
			}
		case "spread_parameter":
			// spread_parameter carries its type as a plain child.
			if typeText := spreadParameterType(child, src); typeText != "" {
				types = append(types, strings.ReplaceAll(typeText, " ", "")+"...")
			}
		}
	}
	return types
}

// spreadParameterType returns the element type text of a varargs parameter.
func spreadParameterType(node *sitter.Node, src []byte) string {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		switch child.Type() {
		case "type_identifier", "generic_type", "array_type", "scoped_type_identifier",
			"integral_type", "floating_point_type", "boolean_type":
			return child.Content(src)
		}
	}
	return ""
}

// javaBaseClasses extracts extends/implements names in order, with generic
// parameter lists stripped and scoped identifiers kept whole.
func javaBaseClasses(superclass, interfaces *sitter.Node, src []byte) []string {
	var bases []string
	if superclass != nil {
		collectJavaTypeNames(superclass, src, &bases)
	}
	if interfaces != nil {
		for i := uint32(0); i < interfaces.ChildCount(); i++ {
			collectJavaTypeNames(interfaces.Child(int(i)), src, &bases)
		}
	}
	return bases
}

// collectJavaTypeNames appends type names from a type node, recursing
// through wrapper nodes.
func collectJavaTypeNames(node *sitter.Node, src []byte, result *[]string) {
	switch node.Type() {
	case "type_identifier":
		*result = append(*result, node.Content(src))
	case "generic_type":
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child.Type() == "type_identifier" || child.Type() == "scoped_type_identifier" {
				*result = append(*result, child.Content(src))
				break
			}
		}
	case "scoped_type_identifier":
		*result = append(*result, node.Content(src))
	case "superclass", "super_interfaces", "extends_interfaces", "type_list":
		for i := uint32(0); i < node.ChildCount(); i++ {
			collectJavaTypeNames(node.Child(int(i)), src, result)
		}
	}
}

// javaDefinitionLine returns the line of the declaration keyword, which for
// annotated declarations differs from the node's start line.
func javaDefinitionLine(node *sitter.Node) int {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		switch child.Type() {
		case "class", "interface", "enum":
			return int(child.StartPoint().Row) + 1
		}
	}
	return int(node.StartPoint().Row) + 1
}

// qualify joins a scope and a name into a dotted qualname.
func qualify(scope []string, name string) string {
	if len(scope) == 0 {
		return name
	}
	return strings.Join(scope, ".") + "." + name
}

// childScope returns a fresh scope slice extended with name.
func childScope(scope []string, name string) []string {
	inner := make([]string, 0, len(scope)+1)
	inner = append(inner, scope...)
	return append(inner, name)
}

// containsString reports whether list contains s.
func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
