package spec

import (
	"fmt"
	"strings"
)

// Parse reads "Name" or "Name(arg,arg,...)". Arguments may contain nested
// parentheses, so "HMAC(SHA-3(256))" yields one argument "SHA-3(256)".
func Parse(text string) (Spec, error) {
	text = strings.TrimSpace(text)
	open := strings.IndexByte(text, '(')
	if open < 0 {
		if strings.ContainsAny(text, "),") {
			return Spec{}, fmt.Errorf("%w: %q", ErrSyntax, text)
		}
		return New(text)
	}
	if !strings.HasSuffix(text, ")") {
		return Spec{}, fmt.Errorf("%w: %q: missing closing parenthesis", ErrSyntax, text)
	}

	name := strings.TrimSpace(text[:open])
	if name == "" {
		return Spec{}, fmt.Errorf("%w: %q", ErrEmptyName, text)
	}
	if strings.ContainsAny(name, "(),") {
		return Spec{}, fmt.Errorf("%w: %q: invalid name %q", ErrSyntax, text, name)
	}

	body := text[open+1 : len(text)-1]
	if strings.TrimSpace(body) == "" {
		return New(name)
	}

	var args []string
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return Spec{}, fmt.Errorf("%w: %q: unbalanced parentheses", ErrSyntax, text)
			}
		case ',':
			if depth == 0 {
				args = append(args, body[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return Spec{}, fmt.Errorf("%w: %q: unbalanced parentheses", ErrSyntax, text)
	}
	args = append(args, body[start:])

	for i, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			return Spec{}, fmt.Errorf("%w: %q: empty argument #%d", ErrSyntax, text, i)
		}
		args[i] = a
	}
	return New(name, args...)
}
