/*
main.go - Directory <-> flat array sync for compliance check files

USAGE:
  # Collect a directory tree of check files into one array
  ./mirror -src=./data/checks -out=./public/checks.json

  # Split an array back into one file per check
  ./mirror -explode -src=./public/checks.json -out=./data/checks
*/
package main

import (
	"flag"

	"github.com/sirupsen/logrus"
	"github.com/warp/compliance-tracker/mirror"
)

func main() {
	src := flag.String("src", "data/checks", "Source directory (collect) or flat JSON file (explode)")
	out := flag.String("out", "checks.json", "Output flat JSON file (collect) or directory (explode)")
	explode := flag.Bool("explode", false, "Split a flat array into one file per check")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	syncer := mirror.New(logger.WithField("component", "mirror"))

	if *explode {
		checks, err := mirror.ReadFlat(*src)
		if err != nil {
			logger.WithError(err).Fatal("failed to read flat array")
		}
		if err := syncer.Explode(*out, checks); err != nil {
			logger.WithError(err).Fatal("failed to explode checks")
		}
		return
	}

	checks, err := syncer.Collect(*src)
	if err != nil {
		logger.WithError(err).Fatal("failed to collect checks")
	}
	if err := syncer.WriteFlat(*out, checks); err != nil {
		logger.WithError(err).Fatal("failed to write flat array")
	}
}
