package composition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Parse reads a chemical formula such as "BaNbO2N", "Ca3(PO4)2", or
// "Zn₃N₂". Unicode subscript digits are folded to ASCII through NFKC
// normalization and whitespace is ignored.
func Parse(formula string) (Composition, error) {
	normalized := normalizeFormula(formula)
	if normalized == "" {
		return Composition{}, ErrEmptyFormula
	}

	p := &parser{src: normalized}
	amounts, err := p.group(0)
	if err != nil {
		return Composition{}, fmt.Errorf("parse %q: %w", formula, err)
	}
	if p.pos != len(p.src) {
		return Composition{}, fmt.Errorf("parse %q: %w: unexpected %q at %d", formula, ErrInvalidFormula, p.src[p.pos], p.pos)
	}

	return New(amounts)
}

func normalizeFormula(formula string) string {
	s := norm.NFKC.String(formula)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

type parser struct {
	src string
	pos int
}

func (p *parser) group(depth int) (map[string]float64, error) {
	amounts := make(map[string]float64)

	for p.pos < len(p.src) {
		ch := p.src[p.pos]

		switch {
		case ch == '(' || ch == '[':
			closing := byte(')')
			if ch == '[' {
				closing = ']'
			}
			p.pos++

			inner, err := p.group(depth + 1)
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.src) || p.src[p.pos] != closing {
				return nil, fmt.Errorf("%w: unbalanced %q", ErrInvalidFormula, ch)
			}
			p.pos++

			mult, err := p.number()
			if err != nil {
				return nil, err
			}
			for el, amt := range inner {
				amounts[el] += amt * mult
			}

		case ch == ')' || ch == ']':
			if depth == 0 {
				return nil, fmt.Errorf("%w: unbalanced %q", ErrInvalidFormula, ch)
			}
			return amounts, nil

		case ch >= 'A' && ch <= 'Z':
			start := p.pos
			p.pos++
			for p.pos < len(p.src) && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
				p.pos++
			}
			symbol := p.src[start:p.pos]
			if _, ok := table[symbol]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownElement, symbol)
			}

			amt, err := p.number()
			if err != nil {
				return nil, err
			}
			amounts[symbol] += amt

		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidFormula, ch, p.pos)
		}
	}

	return amounts, nil
}

// number reads an optional decimal amount, defaulting to 1.
func (p *parser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 1, nil
	}

	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, p.src[start:p.pos])
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, p.src[start:p.pos])
	}
	return v, nil
}
