package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/timesheet/internal/app"
)

// ログは標準エラー出力に書き、reportなどの結果は標準出力に書く。
func main() {
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
