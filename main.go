package main

import "github.com/fotobox/facesearch/cmd"

func main() {
	cmd.Execute()
}
