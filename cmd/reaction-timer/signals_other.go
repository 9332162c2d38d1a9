//go:build !unix

package main

import "os"

var cancelSignals []os.Signal
