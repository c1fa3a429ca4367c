// Package main is the entry point for the qbstats CLI tool, which aggregates
// play-by-play passing data per quarterback and season and fits a touchdown
// model on previous-season stats.
package main

import "github.com/pable/go-qb-stats/cmd"

func main() {
	cmd.Execute()
}
