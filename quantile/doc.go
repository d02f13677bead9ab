// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package quantile implements the P² (piecewise-parabolic prediction)
// streaming estimators of Jain & Chlamtac: a five-marker tracker for a
// single target quantile, and its generalization to an adaptive
// equi-probable histogram with a configurable bucket count.  Both run in
// constant space and O(markers) time per observation, and both serialize to
// a frameless little-endian byte layout.
package quantile
