// The main package for the weibo-harvest executable.
package main

import (
	"weibo-harvest/cmd"
)

func main() {
	cmd.Execute()
}
