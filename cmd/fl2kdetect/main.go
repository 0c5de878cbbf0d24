// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/msiner/fl2k-go/api"
)

func main() {
	flags := pflag.NewFlagSet("fl2kdetect", pflag.ExitOnError)
	countOnly := flags.BoolP("count", "c", false, "Print only the number of devices")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: fl2kdetect [FLAGS]

fl2kdetect prints the index and name of every attached FL2000
adapter, one device per line.

Flags:
`,
		))
		flags.PrintDefaults()
	}

	// Using ExitOnError
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "too many arguments provided")
		flags.Usage()
		os.Exit(1)
	}

	count := api.DeviceCount()

	if *countOnly {
		fmt.Println(count)
		return
	}

	if count == 0 {
		fmt.Fprintln(os.Stderr, "no FL2000 devices found")
		os.Exit(1)
	}

	for i := uint32(0); i < count; i++ {
		fmt.Printf("%d,%s\n", i, api.DeviceName(i))
	}
}
