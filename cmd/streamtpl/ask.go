package main

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/bjaus/streamtpl"
)

var errAborted = errors.New("prompt aborted")

// askPrompts asks every prompt on the terminal and returns the answers keyed
// by entry name.
func askPrompts(prompts []streamtpl.Prompt) (map[string]string, error) {
	answers := make(map[string]string, len(prompts))
	for _, p := range prompts {
		var out string
		q := &survey.Input{
			Message: p.Message,
			Default: p.Default,
			Help:    fmt.Sprintf("Value rendered for %s", p.Name),
		}
		if err := survey.AskOne(q, &out); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil, errAborted
			}
			return nil, fmt.Errorf("asking %s: %w", p.Name, err)
		}
		answers[p.Name] = out
	}
	return answers, nil
}
