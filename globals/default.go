package globals

import "github.com/hashicorp/go-hclog"

var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "reunion-rooms",
	Level: hclog.LevelFromString("INFO"),
})
