package main

import "github.com/KaramelBytes/classreport-cli/cmd"

func main() {
	cmd.Execute()
}
