// Package prompts renders the instructions sent to the semantic oracle.
package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
)

// DefaultContextWindow is the number of characters the oracle is asked to
// quote on either side of a span.
const DefaultContextWindow = 5

// Prompt is a rendered system/user prompt pair.
type Prompt struct {
	System          string `json:"system"`
	User            string `json:"user"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// Builder renders prompts. It is safe for concurrent use.
type Builder struct {
	contextWindow int
	contract      *template.Template
	user          *template.Template
}

// NewBuilder parses the built-in templates. A non-positive contextWindow
// falls back to DefaultContextWindow.
func NewBuilder(contextWindow int) (*Builder, error) {
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	contract, err := template.New("contract").Parse(outputContract)
	if err != nil {
		return nil, fmt.Errorf("parsing output contract: %w", err)
	}
	user, err := template.New("user").Parse(userTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing user template: %w", err)
	}
	return &Builder{contextWindow: contextWindow, contract: contract, user: user}, nil
}

// MustNewBuilder is NewBuilder for the built-in templates, which always parse.
func MustNewBuilder(contextWindow int) *Builder {
	b, err := NewBuilder(contextWindow)
	if err != nil {
		panic(err)
	}
	return b
}

// System renders the system prompt for s. Unknown sensitivities use the
// medium instructions.
func (b *Builder) System(s diff.Sensitivity) (string, error) {
	instr, ok := sensitivityInstructions[s]
	if !ok {
		instr = sensitivityInstructions[diff.SensitivityMedium]
	}
	var contract bytes.Buffer
	if err := b.contract.Execute(&contract, struct{ ContextWindow int }{b.contextWindow}); err != nil {
		return "", fmt.Errorf("rendering output contract: %w", err)
	}
	return strings.Join([]string{baseInstructions, instr, contract.String()}, "\n\n"), nil
}

// User renders the user prompt carrying both texts verbatim.
func (b *Builder) User(original, generated string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Original, Generated string }{original, generated}
	if err := b.user.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering user prompt: %w", err)
	}
	return buf.String(), nil
}

// Build renders both prompts for one comparison.
func (b *Builder) Build(s diff.Sensitivity, original, generated string) (Prompt, error) {
	system, err := b.System(s)
	if err != nil {
		return Prompt{}, err
	}
	user, err := b.User(original, generated)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		System:          system,
		User:            user,
		EstimatedTokens: EstimateTokenCount(system) + EstimateTokenCount(user),
	}, nil
}

// EstimateTokenCount gives a rough token count: about four characters per
// token for alphabetic scripts and 1.5 for CJK.
func EstimateTokenCount(text string) int {
	if text == "" {
		return 0
	}
	cjk, total := 0, 0
	for _, r := range text {
		total++
		if isCJK(r) {
			cjk++
		}
	}
	tokens := float64(cjk)*0.67 + float64(total-cjk)*0.25
	if tokens < 1 {
		return 1
	}
	return int(tokens + 0.5)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}

//Personal.AI order the ending
