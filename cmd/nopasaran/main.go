// Package main is the nopasaran command: run a chart as a test
// worker, render charts, and look at stored run reports.
package main

func main() {
	Execute()
}
