package main

import (
	"fmt"
	"strings"

	"github.com/entrhq/webext/pkg/launch"
)

// stringList is a repeatable string flag
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// expectList is a repeatable selector=text flag. The first "=" outside an
// attribute selector's brackets separates the two, so both
// [data-id="x"]=42 and #q=a=b parse.
type expectList []launch.Expectation

func (l *expectList) String() string {
	parts := make([]string, len(*l))
	for i, e := range *l {
		parts[i] = e.Selector + "=" + e.Text
	}
	return strings.Join(parts, ",")
}

func (l *expectList) Set(value string) error {
	i := selectorEnd(value)
	if i < 0 || strings.TrimSpace(value[:i]) == "" {
		return fmt.Errorf("expected selector=text, got %q", value)
	}
	*l = append(*l, launch.Expectation{Selector: value[:i], Text: value[i+1:]})
	return nil
}

// selectorEnd returns the index of the first "=" that is not inside [...]
// or a quoted attribute value, or -1.
func selectorEnd(value string) int {
	depth := 0
	var quote rune
	for i, r := range value {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case depth > 0 && (r == '"' || r == '\''):
			quote = r
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case r == '=' && depth == 0:
			return i
		}
	}
	return -1
}
