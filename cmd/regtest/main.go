// Command regtest runs shell-driven regression tests against a program under
// test and compares their captured output to golden expected files.
package main

import (
	"os"

	"github.com/hvtools/regtest/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
