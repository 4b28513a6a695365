package main

import "github.com/Zura1555/ecommerce/cmd"

func main() {
	cmd.Execute()
}
