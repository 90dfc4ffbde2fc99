package il

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	methodNameRegex = regexp2.MustCompile(`^(?<ret>\S+) (?<decl>\S+?)::(?<name>[^(\s]+)\((?<params>.*)\)$`, regexp2.None)
	fieldNameRegex  = regexp2.MustCompile(`^(?<type>\S+) (?<decl>\S+?)::(?<name>\S+)$`, regexp2.None)
)

// ParseMethodRef parses a normalized full name such as
// "System.Int32 System.IO.BinaryReader::ReadInt32()".
func ParseMethodRef(fullName string) (*MethodRef, error) {
	m, err := methodNameRegex.FindStringMatch(fullName)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("invalid method full name: %s", fullName)
	}
	return &MethodRef{
		ReturnType:    m.GroupByName("ret").String(),
		DeclaringType: m.GroupByName("decl").String(),
		Name:          m.GroupByName("name").String(),
		Params:        splitParams(m.GroupByName("params").String()),
	}, nil
}

// ParseFieldRef parses "Type Decl::name".
func ParseFieldRef(fullName string) (*FieldRef, error) {
	m, err := fieldNameRegex.FindStringMatch(fullName)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("invalid field full name: %s", fullName)
	}
	return &FieldRef{
		Type:          m.GroupByName("type").String(),
		DeclaringType: m.GroupByName("decl").String(),
		Name:          m.GroupByName("name").String(),
	}, nil
}

// splitParams splits on commas that are not nested inside generic arguments.
func splitParams(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var params []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<', '[':
			depth++
		case '>', ']':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(params, strings.TrimSpace(s[start:]))
}
