// Gitmeta stores file metadata that git does not track and restores it.
package main

import "github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/cli"

func main() {
	cli.Execute()
}
