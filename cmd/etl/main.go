package main

import (
	"os"

	"github.com/vfg2006/trusted-etl/pkg/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.L.WithError(err).Error("Execução encerrada com erro")
		os.Exit(1)
	}
}
