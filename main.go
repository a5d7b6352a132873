package main

import "github.com/andresmejia3/delogo/cmd"

func main() {
	cmd.Execute()
}
