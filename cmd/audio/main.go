// Command audio compresses and decompresses 16-bit PCM WAV files using the
// Taylor finite-difference predictor and Golomb-Rice residual coding.
package main

import (
	"log"
	"os"

	"github.com/pkg/errors"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	path, cmd := args[0], args[1]
	rest := args[2:]

	switch cmd {
	case "encode":
		return runEncode(path, rest)
	case "decode":
		return runDecode(path)
	default:
		return usageError()
	}
}

func usageError() error {
	return errors.Errorf("usage:\n" +
		"  audio <path> encode lossless <degree>\n" +
		"  audio <path> encode lossy <target_kbps> <degree>\n" +
		"  audio <path> decode")
}
