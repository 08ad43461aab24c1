package runner

import (
	"errors"
	"io"

	"github.com/manifoldco/promptui"
)

// ErrAborted はユーザーが入力を中断したことを表すのだ。
var ErrAborted = errors.New("入力が中断されました")

// Prompter は対話入力の契約です。テストでは差し替えるのだ。
type Prompter interface {
	Input(label, defaultValue string, validate func(string) error) (string, error)
	Select(label string, items []string) (int, error)
}

// TerminalPrompter は promptui を使った Prompter の実装です。
type TerminalPrompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
	// Size は選択肢を一度に表示する行数
	Size int
}

func (p *TerminalPrompter) Input(label, defaultValue string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
		Stdin:    p.Stdin,
		Stdout:   p.Stdout,
	}
	v, err := prompt.Run()
	return v, mapPromptError(err)
}

func (p *TerminalPrompter) Select(label string, items []string) (int, error) {
	size := p.Size
	if size <= 0 {
		size = 6
	}
	sel := promptui.Select{
		Label:  label,
		Items:  items,
		Size:   size,
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}
	idx, _, err := sel.Run()
	return idx, mapPromptError(err)
}

func mapPromptError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrEOF) {
		return ErrAborted
	}
	return err
}
