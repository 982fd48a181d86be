package main

import (
	"log"

	"nft-ticketing/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
