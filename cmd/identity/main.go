package main

import (
	"github.com/sme-finance/identity/app"
)

func main() {
	app.New(nil).Run()
}
