package main

import (
	"github.com/turtacn/keyreg/cmd/cli"
)

// main 是 keyreg-admin 命令行工具的入口点，执行委托给 cli 包。
func main() {
	cli.Execute()
}
