package main

import "flag"

// flagSet wraps flag.FlagSet with ContinueOnError behavior so the caller
// controls error handling rather than the flag package exiting the
// process.
type flagSet struct {
	*flag.FlagSet
}

func newCustomFlagSet(name string) *flagSet {
	return &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
}
