package formula

import "strings"

// rewriteNegation переписывает унарный минус так, чтобы он применялся после
// возведения в степень, как в обычной математической записи:
//
//	-x**2    -> (0-x**2)
//	e**-x**2 -> e**(0-x**2)
//
// govaluate связывает унарный минус сильнее, чем **, и без этого -x**2
// считалось бы как (-x)**2.
func rewriteNegation(s string) string {
	var out strings.Builder
	out.Grow(len(s) + 8)

	var prev byte // последний непробельный символ
	for i := 0; i < len(s); {
		c := s[i]
		if c == '-' && unaryContext(prev) {
			if end := factorEnd(s, i+1); end > i+1 {
				out.WriteString("(0-")
				out.WriteString(rewriteNegation(s[i+1 : end]))
				out.WriteByte(')')
				prev = ')'
				i = end
				continue
			}
		}
		out.WriteByte(c)
		if !isSpace(c) {
			prev = c
		}
		i++
	}
	return out.String()
}

// unaryContext — минус после такого символа унарный
func unaryContext(prev byte) bool {
	return prev == 0 || strings.IndexByte("+-*/%(,<>=!&|?:", prev) >= 0
}

// factorEnd возвращает конец множителя, который начинается в s[i:]:
//
//	множитель = [+-] множитель | первичное [** множитель]
//
// 0 — множитель не распознан.
func factorEnd(s string, i int) int {
	i = skipSpace(s, i)
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		return factorEnd(s, i+1)
	}
	end := primaryEnd(s, i)
	if end == 0 {
		return 0
	}
	j := skipSpace(s, end)
	if strings.HasPrefix(s[j:], "**") {
		if e := factorEnd(s, j+2); e != 0 {
			return e
		}
	}
	return end
}

// primaryEnd: число, имя, вызов функции или выражение в скобках
func primaryEnd(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	switch c := s[i]; {
	case c == '(':
		return closingParen(s, i)
	case isDigit(c) || c == '.':
		for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
			i++
		}
		return i
	case isLetter(c):
		for i < len(s) && (isLetter(s[i]) || isDigit(s[i])) {
			i++
		}
		if j := skipSpace(s, i); j < len(s) && s[j] == '(' {
			return closingParen(s, j)
		}
		return i
	}
	return 0
}

func closingParen(s string, i int) int {
	depth := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool  { return '0' <= c && c <= '9' }
func isLetter(c byte) bool { return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }
