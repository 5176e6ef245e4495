package main

import "github.com/dbsmedya/goerd/cmd/goerd/cmd"

func main() {
	cmd.Execute()
}
