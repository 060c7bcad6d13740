package identity

import (
	"context"

	"github.com/charmbracelet/huh"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// PromptConfirmer asks on the attached terminal.
type PromptConfirmer struct{}

// Confirm implements Confirmer.
func (PromptConfirmer) Confirm(ctx context.Context, title, description string) (bool, error) {
	var answer bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&answer),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return answer, nil
}

// AutoConfirmer answers without prompting. It backs --force-cleanup,
// quiet runs, and tests.
type AutoConfirmer struct {
	Answer bool
}

// Confirm implements Confirmer.
func (c AutoConfirmer) Confirm(context.Context, string, string) (bool, error) {
	return c.Answer, nil
}
