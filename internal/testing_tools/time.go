package testing_tools

import "time"

// Inception is a fixed moment the fixtures are dated with
var Inception = time.Date(2024, 1, 3, 12, 3, 42, 0, time.UTC)

// InceptionUnix is the Inception in the Unix time format used by the Bot API
var InceptionUnix = Inception.Unix()
