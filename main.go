package main

import (
	cmd "github.com/glosahq/glosa/cmd/glosa"
	"github.com/glosahq/glosa/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting glosa")
	cmd.Execute()
}
