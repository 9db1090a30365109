package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// Prints a random hex string suitable for the SECRET_KEY setting.
// An optional argument overrides the key length in bytes.

const defaultKeyLen = 32

func main() {
	keyLen := defaultKeyLen

	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "usage: %s [key-length-bytes]\n", os.Args[0])
			os.Exit(2)
		}
		keyLen = n
	}

	b := make([]byte, keyLen)

	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
