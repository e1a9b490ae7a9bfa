package main

import (
	"github.com/BioHazard786/Roomcast/cmd"
	"github.com/BioHazard786/Roomcast/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
