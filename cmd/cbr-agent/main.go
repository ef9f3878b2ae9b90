package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/canbridge/cmd/cbr-agent/app"
)

func main() {
	app.NewApp().Run()
}
