package main

import "strconv"

// verbosity implements flag.Value so that repeated -v/--verbose flags
// accumulate instead of the last one winning, matching the "0-4+,
// repeatable" verbosity surface.
type verbosity int

func (v *verbosity) String() string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(int(*v))
}

func (v *verbosity) Set(string) error {
	*v++
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }
