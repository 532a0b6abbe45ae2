package console

import (
	"strings"

	"github.com/chzyer/readline"
)

// Prompt reads one line from the terminal, displaying question as the
// prompt.
func Prompt(question string) (string, error) {
	rl, err := readline.New(question)
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()
	return rl.Readline()
}

// Confirm asks a yes/no question and reports the answer. Empty input
// counts as yes.
func Confirm(question string) (bool, error) {
	rl, err := readline.New(question + " [Y/n]: ")
	if err != nil {
		return false, err
	}
	defer func() { _ = rl.Close() }()
	response, err := rl.Readline()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "", "y", "yes":
		return true, nil
	}
	return false, nil
}
