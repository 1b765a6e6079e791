package main

import "github.com/josephgoksu/ideaflow/cmd"

func main() {
	cmd.Execute()
}
