//go:build strandnodebug

package vm

const debugBuild = false

func debugAssert(cond bool, msg string) {}
