package main

import (
	_ "time/tzdata"

	"garage-scraper/cmd"
)

func main() {
	cmd.Execute()
}
