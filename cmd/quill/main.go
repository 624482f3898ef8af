package main

import "github.com/santiagomed/quill/cli"

func main() {
	cli.Execute()
}
