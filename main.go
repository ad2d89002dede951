package main

import "badgereq/cmd"

func main() {
	cmd.Execute()
}
