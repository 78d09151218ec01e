// Command epubclean merges style runs and writes chapter headings in the
// content documents of ePub books.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "epubclean:", err)
		os.Exit(exitCode(err))
	}
}
