package main

import (
	"github.com/lunixbochs/ropcorn/go/cmd"

	_ "github.com/lunixbochs/ropcorn/go/cmd/gadget"
	_ "github.com/lunixbochs/ropcorn/go/cmd/info"
)

func main() { cmd.Main() }
