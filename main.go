package main

import "github.com/hoangtm-lab/r2s-detect/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
