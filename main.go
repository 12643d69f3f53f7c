package main

import "time-exchange.com/time-exchange/cmd"

func main() {
	cmd.Execute()
}
