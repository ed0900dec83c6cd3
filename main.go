package main

import "matchchat-backend/cmd"

func main() {
	cmd.Run()
}
