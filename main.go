package main

import (
	"log"
	"os"

	"ctsentinel/cmd"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("ctsentinel: ")
	log.SetOutput(os.Stderr)
}

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
