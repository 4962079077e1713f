package fact

// Predicate is the enumerated assertion type of a Fact. The enum is closed:
// adding a member is a compile-time decision, and the query index sizes its
// tables from PredicateCount. Members are grouped into four families;
// family membership drives nothing at runtime, it documents intent.
type Predicate uint16

const (
	// Structural family: what a span is.
	IsDocument Predicate = iota
	IsObject
	IsArray
	IsString
	IsNumber
	IsInteger
	IsFloat
	IsBool
	IsTrue
	IsFalse
	IsNull
	IsIdentifier
	IsKeyword
	IsComment
	IsLineComment
	IsBlockComment
	IsWhitespace
	IsPunctuation
	IsOperator
	IsLiteral
	IsCharLiteral
	IsMultilineString
	IsEnumLiteral
	IsMember
	IsElement
	IsPair
	IsKey
	IsValue
	IsTrivia
	IsRoot
	IsEmpty
	IsNested
	IsErrorNode

	// Relational family: how spans relate to each other.
	HasParent
	HasChild
	Follows
	Precedes
	Contains
	ContainedBy
	FirstChild
	LastChild
	NextSibling
	PrevSibling
	RefersTo
	ReferencedBy
	DependsOn
	Shadows
	Overlaps
	Adjacent
	SameLine
	OpensWith
	ClosesWith
	Delimits

	// Property family: attributes attached to a span.
	HasKey
	HasValue
	HasText
	HasLength
	HasDepth
	HasIndex
	HasEscapes
	HasUnicodeEscape
	HasSign
	HasExponent
	HasFraction
	HasRadix
	HasQuoteStyle
	HasTrailingComma
	HasFlags

	// Scope family: lexical scoping assertions.
	BeginsScope
	EndsScope
	InScope
	ScopeDepth
	DeclaresName
	UsesName
	ExportsName
	ImportsName
	BindsName
	ResolvesTo

	// PredicateCount is one past the last valid member.
	PredicateCount
)

var predicateNames = [PredicateCount]string{
	IsDocument:        "is_document",
	IsObject:          "is_object",
	IsArray:           "is_array",
	IsString:          "is_string",
	IsNumber:          "is_number",
	IsInteger:         "is_integer",
	IsFloat:           "is_float",
	IsBool:            "is_bool",
	IsTrue:            "is_true",
	IsFalse:           "is_false",
	IsNull:            "is_null",
	IsIdentifier:      "is_identifier",
	IsKeyword:         "is_keyword",
	IsComment:         "is_comment",
	IsLineComment:     "is_line_comment",
	IsBlockComment:    "is_block_comment",
	IsWhitespace:      "is_whitespace",
	IsPunctuation:     "is_punctuation",
	IsOperator:        "is_operator",
	IsLiteral:         "is_literal",
	IsCharLiteral:     "is_char_literal",
	IsMultilineString: "is_multiline_string",
	IsEnumLiteral:     "is_enum_literal",
	IsMember:          "is_member",
	IsElement:         "is_element",
	IsPair:            "is_pair",
	IsKey:             "is_key",
	IsValue:           "is_value",
	IsTrivia:          "is_trivia",
	IsRoot:            "is_root",
	IsEmpty:           "is_empty",
	IsNested:          "is_nested",
	IsErrorNode:       "is_error_node",
	HasParent:         "has_parent",
	HasChild:          "has_child",
	Follows:           "follows",
	Precedes:          "precedes",
	Contains:          "contains",
	ContainedBy:       "contained_by",
	FirstChild:        "first_child",
	LastChild:         "last_child",
	NextSibling:       "next_sibling",
	PrevSibling:       "prev_sibling",
	RefersTo:          "refers_to",
	ReferencedBy:      "referenced_by",
	DependsOn:         "depends_on",
	Shadows:           "shadows",
	Overlaps:          "overlaps",
	Adjacent:          "adjacent",
	SameLine:          "same_line",
	OpensWith:         "opens_with",
	ClosesWith:        "closes_with",
	Delimits:          "delimits",
	HasKey:            "has_key",
	HasValue:          "has_value",
	HasText:           "has_text",
	HasLength:         "has_length",
	HasDepth:          "has_depth",
	HasIndex:          "has_index",
	HasEscapes:        "has_escapes",
	HasUnicodeEscape:  "has_unicode_escape",
	HasSign:           "has_sign",
	HasExponent:       "has_exponent",
	HasFraction:       "has_fraction",
	HasRadix:          "has_radix",
	HasQuoteStyle:     "has_quote_style",
	HasTrailingComma:  "has_trailing_comma",
	HasFlags:          "has_flags",
	BeginsScope:       "begins_scope",
	EndsScope:         "ends_scope",
	InScope:           "in_scope",
	ScopeDepth:        "scope_depth",
	DeclaresName:      "declares_name",
	UsesName:          "uses_name",
	ExportsName:       "exports_name",
	ImportsName:       "imports_name",
	BindsName:         "binds_name",
	ResolvesTo:        "resolves_to",
}

// Valid reports whether p is a member of the closed enum.
func (p Predicate) Valid() bool {
	return p < PredicateCount
}

func (p Predicate) String() string {
	if !p.Valid() {
		return "invalid_predicate"
	}
	return predicateNames[p]
}

// ParsePredicate resolves a predicate by its snake_case name, as used on
// the CLI. The bool is false for unknown names.
func ParsePredicate(name string) (Predicate, bool) {
	for i, n := range predicateNames {
		if n == name {
			return Predicate(i), true
		}
	}
	return 0, false
}
