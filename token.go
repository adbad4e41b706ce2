// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package cirstream

// IDProperty is the reserved property name carrying an object's reference
// id. It must be the first property of every object, just as the reference
// id string must be the first element of every array.
const IDProperty = "__cirJsonId__"

// Token is the type of a structural or value token in the CirJSON grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid     Token = iota // invalid token
	NeedMore                 // parser requires more input
	BeginObject              // begin object "{"
	EndObject                // end object "}"
	BeginArray               // begin array "["
	EndArray                 // end array "]"
	Name                     // object property name
	IDName                   // the reserved identity property name
	String                   // string value
	Integer                  // number: integer with no fraction or exponent
	Number                   // number with fraction and/or exponent
	True                     // constant: true
	False                    // constant: false
	Null                     // constant: null
)

var tokenStr = [...]string{
	Invalid:     "invalid token",
	NeedMore:    "more input required",
	BeginObject: `"{"`,
	EndObject:   `"}"`,
	BeginArray:  `"["`,
	EndArray:    `"]"`,
	Name:        "property name",
	IDName:      "identity property name",
	String:      "string",
	Integer:     "integer",
	Number:      "number",
	True:        "true",
	False:       "false",
	Null:        "null",
}

func (t Token) String() string {
	v := int(t)
	if v >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

// IsScalar reports whether t is a value token (string, number, boolean or
// null) as opposed to a structural or name token.
func (t Token) IsScalar() bool { return t >= String && t <= Null }
