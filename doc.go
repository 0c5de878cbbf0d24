// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Package fl2k is the top-level package of the fl2k-go module.
See the api package for direct access to FL2000-based USB VGA
adapters or the session package for a more convenient and idiomatic
API.
*/
package fl2k
