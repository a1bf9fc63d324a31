//go:build !windows

package main

func raiseProcessPriority() {}
