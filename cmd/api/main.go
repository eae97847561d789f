package main

import (
	"go.uber.org/fx"

	"github.com/hashmato/pos/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
