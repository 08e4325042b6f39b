// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sampleconfig provides a single constant that contains the contents of
the sample configuration file for bgd.  It is written out as the initial
configuration file when none exists yet, so a fresh install documents every
option it can be tuned with.
*/
package sampleconfig
