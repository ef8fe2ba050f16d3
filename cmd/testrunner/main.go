package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lawnchairsociety/xianmud/internal/testclient"
)

func main() {
	serverAddr := flag.String("addr", "localhost:4000", "Telnet address of a running server")
	verbose := flag.Bool("v", false, "Show each step as it runs")
	flag.Parse()

	testclient.Verbose = *verbose

	fmt.Printf("Running integration scenarios against %s\n\n", *serverAddr)
	results := testclient.RunAll(*serverAddr)
	testclient.PrintResults(results)

	for _, result := range results {
		if !result.Passed {
			os.Exit(1)
		}
	}
}
