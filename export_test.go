package esm

// WithClock exposes the clock option to external tests.
var WithClock = withClock

// SplitWindow exposes window splitting to external tests.
var SplitWindow = splitWindow

// ParseDevtree exposes device tree parsing to external tests.
var ParseDevtree = parseDevtree
