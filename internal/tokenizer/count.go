package tokenizer

import "errors"

// CountResult captures the outcome of counting one block of text.
type CountResult struct {
	Tokens  int
	Counted bool
}

var errNilCounter = errors.New("nil tokenizer counter")

// CountString estimates tokens for text. An empty string counts as zero tokens.
func CountString(counter Counter, text string) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errNilCounter
	}
	if text == "" {
		return CountResult{Counted: true}, nil
	}
	tokens, err := counter.CountString(text)
	if err != nil {
		return CountResult{}, err
	}
	return CountResult{Tokens: tokens, Counted: true}, nil
}
