package main

import (
	"github.com/shouni/go-cact-kit/cmd"
)

// main は cact コマンドのエントリーポイントなのだ。
// 診断フローやサブコマンドの解析はすべて cmd パッケージが担当します。
func main() {
	cmd.Execute()
}
