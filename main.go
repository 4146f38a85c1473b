package main

import "github.com/shono-io/acasci/cmd"

func main() {
	cmd.Execute()
}
