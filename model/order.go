package model

import "fmt"

// ChoiceLetter renders a 1-based choice order as its letter code:
// 1=A, 2=B, ..., 26=Z, 27=AA.
func ChoiceLetter(order int) string {
	if order < 1 {
		return ""
	}
	letters := []byte{}
	for order > 0 {
		order--
		letters = append([]byte{byte('A' + order%26)}, letters...)
		order /= 26
	}
	return string(letters)
}

// ParseChoiceLetter is the inverse of ChoiceLetter.
func ParseChoiceLetter(code string) (int, error) {
	if code == "" {
		return 0, fmt.Errorf("empty choice letter")
	}
	order := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid choice letter %q", code)
		}
		order = order*26 + int(c-'A') + 1
	}
	return order, nil
}
