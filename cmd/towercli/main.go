package main

import (
	"github.com/towerlink/tower.go/pkg/cli/sh"

	_ "github.com/towerlink/tower.go/pkg/cli/cmds/tower"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
