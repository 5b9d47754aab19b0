package platform

import "errors"

// ErrToolchainMissing is returned by Detect when no C++ compiler is found
// on PATH and no override was given.
var ErrToolchainMissing = errors.New("platform: no c++ toolchain found on PATH")
