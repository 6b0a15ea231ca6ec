package main

import "github.com/ryxu-xo/euralink/cmd"

func main() {
	cmd.Execute()
}
