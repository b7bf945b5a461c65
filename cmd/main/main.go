package main

import (
	"flag"
	"longpollchat/internal/pkg/app"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config, created with defaults when missing")
	flag.Parse()

	app.New(*configPath)
}
