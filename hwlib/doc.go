// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides cycle level models of the devices verified by
// package bench: a dual clock FIFO, a frame DMA master, a display sync
// generator and the control register block tying them into a pipeline.
//
// Models are plain OnEdge devices bound to signals with hwverify.Bind. They
// are used as the devices under verification when no external simulator is
// attached, and can be configured with faults to check that the
// verification components catch them.
//
package hwlib
