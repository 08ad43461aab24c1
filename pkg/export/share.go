package export

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrShareUnsupported はプラットフォームがファイル共有に対応していないことを表します。
	ErrShareUnsupported = errors.New("このプラットフォームはファイル共有に対応していません")
	// ErrShareCancelled はユーザーが共有をキャンセルしたことを表すのだ。
	ErrShareCancelled = errors.New("共有がキャンセルされました")
)

// ShareRequest は共有シートに渡す内容です。
type ShareRequest struct {
	Path     string
	MimeType string
	Title    string
	Text     string
}

// Sharer はネイティブ共有の契約なのだ。
type Sharer interface {
	// CanShare はファイル共有が可能かを返します。
	CanShare() bool
	Share(ctx context.Context, req ShareRequest) error
}

// exitCodeCancelled は共有コマンドがキャンセルを表す終了コード (SIGINT 相当)
const exitCodeCancelled = 130

// CommandSharer は OS の共有コマンド（例: termux-share）を実行する Sharer です。
// Args 中の {file} {title} {text} {mime} は置換され、{file} が無い場合はパスを末尾に付けるのだ。
type CommandSharer struct {
	Name string
	Args []string

	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewCommandSharer は "termux-share -a send" のようなコマンドラインから CommandSharer を作ります。
// 空文字列なら nil を返すのだ。
func NewCommandSharer(commandLine string) *CommandSharer {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil
	}
	return &CommandSharer{Name: fields[0], Args: fields[1:]}
}

func (s *CommandSharer) CanShare() bool {
	if s == nil || s.Name == "" {
		return false
	}
	_, err := s.look()(s.Name)
	return err == nil
}

func (s *CommandSharer) Share(ctx context.Context, req ShareRequest) error {
	if !s.CanShare() {
		return ErrShareUnsupported
	}

	args := s.expandArgs(req)
	cmd := s.cmd()(ctx, s.Name, args...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ErrShareCancelled
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitCodeCancelled {
		return ErrShareCancelled
	}
	return fmt.Errorf("共有コマンド %s の実行に失敗しました (%s): %w", s.Name, strings.TrimSpace(string(out)), err)
}

func (s *CommandSharer) expandArgs(req ShareRequest) []string {
	replacer := strings.NewReplacer(
		"{file}", req.Path,
		"{title}", req.Title,
		"{text}", req.Text,
		"{mime}", req.MimeType,
	)
	args := make([]string, 0, len(s.Args)+1)
	hasFile := false
	for _, a := range s.Args {
		if strings.Contains(a, "{file}") {
			hasFile = true
		}
		args = append(args, replacer.Replace(a))
	}
	if !hasFile {
		args = append(args, req.Path)
	}
	return args
}

func (s *CommandSharer) look() func(string) (string, error) {
	if s.lookPath != nil {
		return s.lookPath
	}
	return exec.LookPath
}

func (s *CommandSharer) cmd() func(ctx context.Context, name string, args ...string) *exec.Cmd {
	if s.command != nil {
		return s.command
	}
	return exec.CommandContext
}
