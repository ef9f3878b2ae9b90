package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/canbridge/cmd/cbr-gateway/app"
)

func main() {
	app.NewApp().Run()
}
