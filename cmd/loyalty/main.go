package main

import "github.com/matthieukhl/loyaltydesk/internal/cmd"

func main() {
	cmd.Execute()
}
