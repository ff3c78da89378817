package main

import "justdial-scraper/cmd"

func main() {
	cmd.Execute()
}
