package main

import "github.com/kapimkk/Projeto-Agencia-Marketing/cmd"

func main() {
	cmd.Execute()
}
