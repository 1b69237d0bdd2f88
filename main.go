package main

import (
	"github.com/taprootstats/tapscan/cmd/tapscan"
)

func main() {
	tapscan.Execute()
}
