// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Package session provides a convenient way to configure and run a
single transmission session on an FL2000 adapter.

A Session is configured declaratively with the WithXYZ option
functions and then driven by Run, which opens the device, programs
the pixel clock, streams until the provided Context ends or the
device is lost, and tears everything down again:

	sess, err := session.NewSession(
		session.WithSampleRate(100e6),
		session.WithTxCallback(func(info *api.DataInfo) {
			info.RBuf = samples
		}),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := sess.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package session
