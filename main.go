package main

import (
	"github.com/gookit/slog"

	"sqlbench/cmd"
)

func init() {
	f := slog.NewTextFormatter()
	f.SetTemplate("[{{datetime}}] [{{level}}] {{message}}\n")
	f.TimeFormat = "2006-01-02T15:04:05.000"
	slog.SetFormatter(f)
	slog.SetLogLevel(slog.InfoLevel)
}

func main() {
	cmd.Execute()
}
