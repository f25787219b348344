// Package main provides the sitepulse CLI entrypoint.
package main

import "github.com/lukemcguire/sitepulse/cmd"

func main() {
	cmd.Execute()
}
