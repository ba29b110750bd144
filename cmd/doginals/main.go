// Command doginals inscribes files onto Dogecoin as chained P2SH envelopes
// and serves the same workflow over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
