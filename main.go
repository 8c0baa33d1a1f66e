package main

import "github.com/fakeyudi/mirro/cmd"

func main() {
	cmd.Execute()
}
