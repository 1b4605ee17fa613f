package main

import (
	"github.com/iptecharch/deviceconfig-controller/client/cmd"
)

func main() {
	cmd.Execute()
}
