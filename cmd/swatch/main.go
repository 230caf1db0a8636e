// swatch - dominant colour palette extraction
//
// swatch reports the most common colours of an image together with how much
// of the image each one covers, from the command line, a small upload server
// or a directory watcher.
package main

import (
	"github.com/jmylchreest/swatch/internal/cli"
)

func main() {
	cli.Execute()
}
