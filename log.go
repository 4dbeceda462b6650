package main

import (
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/config"
	"github.com/dgnsrekt/narrator/internal/logging"
)

func setupLog(proc config.Process) (func() error, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		log.Debug("No data directory for logs", "error", err)
		dataDir = ""
	}
	return logging.Setup(logging.Options{
		Debug:   proc.Debug,
		File:    proc.LogFile,
		DataDir: dataDir,
	})
}
