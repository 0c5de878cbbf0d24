// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
fl2kdetect is a command-line utility that searches for attached
FL2000-based adapters and prints a list of available devices.

	Usage: fl2kdetect [FLAGS]

	fl2kdetect prints the index and name of every attached FL2000
	adapter, one device per line.

	Flags:
	  -c, --count   Print only the number of devices
*/
package main
