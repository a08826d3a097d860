package main

import "github.com/paycycle/backend/cmd"

func main() {
	cmd.Execute()
}
